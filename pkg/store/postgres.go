package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediquest/medscan/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// defaultPollInterval is how often Postgres subscriptions check for new rows.
const defaultPollInterval = 5 * time.Second

// Postgres is a Store backed by a PostgreSQL database. Image payloads above
// MaxInlineBytes are dropped before the write; everything else round-trips.
type Postgres struct {
	pool *pgxpool.Pool
	poll time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to the database at databaseURL, runs any pending
// migrations, and returns the store.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{
		pool: pool,
		poll: defaultPollInterval,
		done: make(chan struct{}),
	}, nil
}

// migrateUp applies the embedded migrations. Already-applied migrations are
// not an error.
func migrateUp(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// SaveReport upserts the record by ID. The stored copy has oversize image
// payloads stripped; the caller's record is untouched.
func (p *Postgres) SaveReport(ctx context.Context, userID string, rec *types.PipelineRecord) error {
	if rec == nil {
		return errors.New("store: nil record")
	}
	stored := StripOversize(rec)

	var reportJSON []byte
	if stored.Report != nil {
		b, err := json.Marshal(stored.Report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		reportJSON = b
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO scan_records (id, user_id, name, mime_type, taken_at, original, enhanced, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			mime_type = EXCLUDED.mime_type,
			taken_at = EXCLUDED.taken_at,
			original = EXCLUDED.original,
			enhanced = EXCLUDED.enhanced,
			report = EXCLUDED.report
	`, stored.ID, userID, stored.Name, stored.MimeType, stored.Timestamp, stored.Original, stored.Enhanced, reportJSON)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Records returns the user's records ordered by capture time.
func (p *Postgres) Records(ctx context.Context, userID string) ([]*types.PipelineRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, mime_type, taken_at, original, enhanced, report
		FROM scan_records
		WHERE user_id = $1
		ORDER BY taken_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]*types.PipelineRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*types.PipelineRecord, error) {
	var rec types.PipelineRecord
	var reportJSON []byte

	err := row.Scan(&rec.ID, &rec.Name, &rec.MimeType, &rec.Timestamp,
		&rec.Original, &rec.Enhanced, &reportJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if len(reportJSON) > 0 {
		var report types.AnalysisReport
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		rec.Report = &report
	}
	return &rec, nil
}

// SaveProfile upserts the user's health profile.
func (p *Postgres) SaveProfile(ctx context.Context, userID string, profile types.HealthProfile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, profile, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			profile = EXCLUDED.profile,
			updated_at = now()
	`, userID, b)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Profile returns the user's profile, or nil when none has been saved.
func (p *Postgres) Profile(ctx context.Context, userID string) (*types.HealthProfile, error) {
	var b []byte
	err := p.pool.QueryRow(ctx,
		`SELECT profile FROM profiles WHERE user_id = $1`, userID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var profile types.HealthProfile
	if err := json.Unmarshal(b, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// AppendSymptom inserts the entry, filling in a generated ID and timestamp
// when they are blank.
func (p *Postgres) AppendSymptom(ctx context.Context, userID string, entry types.SymptomEntry) error {
	entry = normalizeSymptom(entry)

	_, err := p.pool.Exec(ctx, `
		INSERT INTO symptoms (id, user_id, name, severity, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, userID, entry.Name, entry.Severity, entry.Notes, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to append symptom: %w", err)
	}
	return nil
}

// Symptoms returns the user's symptom log ordered by recording time.
func (p *Postgres) Symptoms(ctx context.Context, userID string) ([]types.SymptomEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, severity, notes, recorded_at
		FROM symptoms
		WHERE user_id = $1
		ORDER BY recorded_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query symptoms: %w", err)
	}
	defer rows.Close()

	entries := make([]types.SymptomEntry, 0)
	for rows.Next() {
		var e types.SymptomEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Severity, &e.Notes, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symptoms: %w", err)
	}
	return entries, nil
}

// Subscribe registers fn for records saved for the user after this call.
// Delivery is driven by polling, so notifications lag writes by up to the
// poll interval, and a record re-saved without a newer capture time is not
// re-delivered.
func (p *Postgres) Subscribe(userID string, fn func(*types.PipelineRecord)) (func(), error) {
	if fn == nil {
		return nil, errors.New("store: nil subscriber")
	}
	select {
	case <-p.done:
		return nil, ErrClosed
	default:
	}

	stop := make(chan struct{})
	go p.pollRecords(userID, fn, stop)

	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }
	return cancel, nil
}

func (p *Postgres) pollRecords(userID string, fn func(*types.PipelineRecord), stop <-chan struct{}) {
	seen := make(map[string]time.Time)
	if records, err := p.fetchForPoll(userID); err == nil {
		for _, rec := range records {
			seen[rec.ID] = rec.Timestamp
		}
	}

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-p.done:
			return
		case <-ticker.C:
		}

		records, err := p.fetchForPoll(userID)
		if err != nil {
			continue
		}
		for _, rec := range records {
			prev, ok := seen[rec.ID]
			if ok && !rec.Timestamp.After(prev) {
				continue
			}
			seen[rec.ID] = rec.Timestamp
			fn(rec)
		}
	}
}

func (p *Postgres) fetchForPoll(userID string) ([]*types.PipelineRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.poll)
	defer cancel()
	return p.Records(ctx, userID)
}

// Close cancels all subscriptions and releases the connection pool. It is
// safe to call more than once.
func (p *Postgres) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.pool.Close()
	})
	return nil
}
