package store

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/mediquest/medscan/pkg/types"
)

// testPostgres returns a connected store or skips when DATABASE_URL is unset.
func testPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	s, err := NewPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("NewPostgres failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func cleanupUser(t *testing.T, s *Postgres, userID string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = s.pool.Exec(ctx, `DELETE FROM scan_records WHERE user_id = $1`, userID)
		_, _ = s.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
		_, _ = s.pool.Exec(ctx, `DELETE FROM symptoms WHERE user_id = $1`, userID)
	})
}

func TestPostgresRecordRoundTrip(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()
	userID := "test-" + uuid.New().String()
	cleanupUser(t, s, userID)

	rec := testRecord(uuid.New().String())
	rec.Report.Findings = []types.Finding{
		{Label: "Nodule", Confidence: "High", Explanation: "Dense region in the upper lobe."},
	}
	if err := s.SaveReport(ctx, userID, rec); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	records, err := s.Records(ctx, userID)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.ID != rec.ID || got.Name != rec.Name || got.MimeType != rec.MimeType {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
	}
	if !bytes.Equal(got.Original, rec.Original) {
		t.Error("original payload did not round-trip")
	}
	if got.Report == nil || len(got.Report.Findings) != 1 || got.Report.Findings[0].Label != "Nodule" {
		t.Errorf("report did not round-trip: %+v", got.Report)
	}
}

func TestPostgresUpsert(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()
	userID := "test-" + uuid.New().String()
	cleanupUser(t, s, userID)

	rec := testRecord(uuid.New().String())
	if err := s.SaveReport(ctx, userID, rec); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	rec.Name = "renamed.png"
	if err := s.SaveReport(ctx, userID, rec); err != nil {
		t.Fatalf("second SaveReport failed: %v", err)
	}

	records, _ := s.Records(ctx, userID)
	if len(records) != 1 {
		t.Fatalf("got %d records after upsert, want 1", len(records))
	}
	if records[0].Name != "renamed.png" {
		t.Errorf("Name = %q, want renamed.png", records[0].Name)
	}
}

func TestPostgresStripsOversizePayloads(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()
	userID := "test-" + uuid.New().String()
	cleanupUser(t, s, userID)

	rec := testRecord(uuid.New().String())
	rec.Enhanced = make([]byte, MaxInlineBytes+1)
	if err := s.SaveReport(ctx, userID, rec); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	records, _ := s.Records(ctx, userID)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Enhanced != nil {
		t.Errorf("oversize payload persisted: %d bytes", len(records[0].Enhanced))
	}
	if !bytes.Equal(records[0].Original, rec.Original) {
		t.Error("in-limit payload was lost")
	}
	if len(rec.Enhanced) != MaxInlineBytes+1 {
		t.Error("caller's record was modified")
	}
}

func TestPostgresProfile(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()
	userID := "test-" + uuid.New().String()
	cleanupUser(t, s, userID)

	got, err := s.Profile(ctx, userID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if got != nil {
		t.Fatalf("Profile before save = %+v, want nil", got)
	}

	profile := types.HealthProfile{Name: "Alice", Age: 34, Conditions: []string{"asthma"}}
	if err := s.SaveProfile(ctx, userID, profile); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	profile.Age = 35
	if err := s.SaveProfile(ctx, userID, profile); err != nil {
		t.Fatalf("profile upsert failed: %v", err)
	}

	got, err = s.Profile(ctx, userID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if got == nil || got.Age != 35 || len(got.Conditions) != 1 {
		t.Errorf("Profile = %+v", got)
	}
}

func TestPostgresSymptoms(t *testing.T) {
	s := testPostgres(t)
	ctx := context.Background()
	userID := "test-" + uuid.New().String()
	cleanupUser(t, s, userID)

	if err := s.AppendSymptom(ctx, userID, types.SymptomEntry{Name: "Headache", Severity: 4}); err != nil {
		t.Fatalf("AppendSymptom failed: %v", err)
	}
	if err := s.AppendSymptom(ctx, userID, types.SymptomEntry{Name: "Fatigue", Severity: 3, Notes: "afternoons"}); err != nil {
		t.Fatalf("AppendSymptom failed: %v", err)
	}

	entries, err := s.Symptoms(ctx, userID)
	if err != nil {
		t.Fatalf("Symptoms failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "" || e.RecordedAt.IsZero() {
			t.Errorf("entry missing generated fields: %+v", e)
		}
	}
}

func TestPostgresMigrationsIdempotent(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := migrateUp(dsn); err != nil {
		t.Fatalf("migrateUp failed: %v", err)
	}
}
