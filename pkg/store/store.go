// Package store persists scan records, health profiles, and symptom logs
// keyed by user. Two implementations are provided: Memory keeps everything in
// process and is the default when no database is configured, and Postgres
// persists to PostgreSQL with schema migrations applied on connect.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mediquest/medscan/pkg/types"
)

// MaxInlineBytes is the largest image payload persisted alongside a record in
// the database. Payloads above the limit are dropped before the write; the
// record metadata and report always survive.
const MaxInlineBytes = 1 << 20

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store: closed")

// Store persists pipeline records and patient health data per user.
//
// Implementations are safe for concurrent use.
type Store interface {
	// SaveReport inserts or replaces a pipeline record, keyed by record ID.
	SaveReport(ctx context.Context, userID string, rec *types.PipelineRecord) error

	// Records returns the user's records ordered oldest first. The result is
	// never nil.
	Records(ctx context.Context, userID string) ([]*types.PipelineRecord, error)

	// SaveProfile inserts or replaces the user's health profile.
	SaveProfile(ctx context.Context, userID string, profile types.HealthProfile) error

	// Profile returns the user's profile, or nil when none has been saved.
	Profile(ctx context.Context, userID string) (*types.HealthProfile, error)

	// AppendSymptom adds an entry to the user's symptom log. A blank ID or
	// zero timestamp is filled in before the entry is stored.
	AppendSymptom(ctx context.Context, userID string, entry types.SymptomEntry) error

	// Symptoms returns the user's symptom log ordered oldest first.
	Symptoms(ctx context.Context, userID string) ([]types.SymptomEntry, error)

	// Subscribe registers fn to be called for records saved for the user
	// after this call. The returned cancel function stops delivery.
	Subscribe(userID string, fn func(*types.PipelineRecord)) (func(), error)

	// Close releases the store's resources and cancels all subscriptions.
	Close() error
}

// Open returns a store for the given connection string. An empty dsn selects
// the in-memory store; anything else is treated as a PostgreSQL URL.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemory(), nil
	}
	return NewPostgres(ctx, dsn)
}

// StripOversize returns a deep copy of rec with image payloads larger than
// MaxInlineBytes removed. The argument is never modified. A nil record stays
// nil.
func StripOversize(rec *types.PipelineRecord) *types.PipelineRecord {
	if rec == nil {
		return nil
	}
	out := rec.Clone()
	if len(out.Original) > MaxInlineBytes {
		out.Original = nil
	}
	if len(out.Enhanced) > MaxInlineBytes {
		out.Enhanced = nil
	}
	return out
}

// normalizeSymptom fills in the generated fields both stores require.
func normalizeSymptom(entry types.SymptomEntry) types.SymptomEntry {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	return entry
}
