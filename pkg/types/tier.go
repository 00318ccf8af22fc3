package types

import "strings"

// ConfidenceTier is the three-band classification of a finding's free-text
// confidence, used to pick overlay colors and sort order.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// ParseConfidenceTier maps free-text confidence to a tier by case-insensitive
// substring match, checking "high" before "medium" so mixed phrases like
// "high to medium" land in the stronger band. Anything else, including the
// empty string, is TierLow.
func ParseConfidenceTier(s string) ConfidenceTier {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "high"):
		return TierHigh
	case strings.Contains(l, "medium"):
		return TierMedium
	default:
		return TierLow
	}
}

// Rank returns a numeric weight for ordering, higher means more confident.
func (t ConfidenceTier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	default:
		return 1
	}
}

func (t ConfidenceTier) String() string {
	return string(t)
}
