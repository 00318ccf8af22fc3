package report

import (
	"encoding/json"
	"strings"

	"github.com/mediquest/medscan/pkg/types"
)

// FallbackScoreSummary replaces the scorer's summary when its output
// cannot be parsed.
const FallbackScoreSummary = "A health assessment could not be generated right now. The zero score shown is a placeholder, not a medical evaluation. Please try again later."

// FallbackHealthScore returns the zero-score placeholder used when the
// scoring model's output is unusable.
func FallbackHealthScore() *types.HealthScore {
	return &types.HealthScore{
		HealthScore:     0,
		Summary:         FallbackScoreSummary,
		RiskFactors:     []string{},
		Recommendations: []string{"Consult a healthcare professional for a personal assessment."},
		DoctorSpecialty: "General Physician",
		Urgency:         types.UrgencyLow,
	}
}

type scoreEnvelope struct {
	HealthScore     json.Number `json:"healthScore"`
	Summary         string      `json:"summary"`
	RiskFactors     []string    `json:"riskFactors"`
	Recommendations []string    `json:"recommendations"`
	DoctorSpecialty string      `json:"doctorSpecialty"`
	Urgency         string      `json:"urgency"`
}

// ParseHealthScore converts raw model output into a HealthScore. Like
// ParseAnalysisReport it never fails; the score is clamped to 0..100 and
// urgency normalized to one of the four bands.
func ParseHealthScore(raw string) *types.HealthScore {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return FallbackHealthScore()
	}

	var env scoreEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return FallbackHealthScore()
	}

	score := FallbackHealthScore()
	if v, err := env.HealthScore.Int64(); err == nil {
		score.HealthScore = clampScore(int(v))
	} else if f, err := env.HealthScore.Float64(); err == nil {
		score.HealthScore = clampScore(int(f + 0.5))
	}
	if s := strings.TrimSpace(env.Summary); s != "" {
		score.Summary = s
	}
	if env.RiskFactors != nil {
		score.RiskFactors = env.RiskFactors
	}
	if env.Recommendations != nil {
		score.Recommendations = env.Recommendations
	}
	if s := strings.TrimSpace(env.DoctorSpecialty); s != "" {
		score.DoctorSpecialty = s
	}
	score.Urgency = normalizeUrgency(env.Urgency)
	return score
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// normalizeUrgency maps free text onto the four bands. Unrecognized
// values become Moderate.
func normalizeUrgency(s string) string {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "emergency"):
		return types.UrgencyEmergency
	case strings.Contains(l, "high"):
		return types.UrgencyHigh
	case strings.Contains(l, "low"):
		return types.UrgencyLow
	default:
		return types.UrgencyModerate
	}
}
