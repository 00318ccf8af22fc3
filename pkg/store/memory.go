package store

import (
	"context"
	"errors"
	"sync"

	"github.com/mediquest/medscan/pkg/types"
)

// Memory is an in-process Store. Records keep their full image payloads, so
// the memory store doubles as the offline mode of the dashboard. All methods
// are safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	records  map[string][]*types.PipelineRecord
	profiles map[string]types.HealthProfile
	symptoms map[string][]types.SymptomEntry
	subs     map[string]map[int]func(*types.PipelineRecord)
	nextSub  int
	closed   bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string][]*types.PipelineRecord),
		profiles: make(map[string]types.HealthProfile),
		symptoms: make(map[string][]types.SymptomEntry),
		subs:     make(map[string]map[int]func(*types.PipelineRecord)),
	}
}

// SaveReport stores a deep copy of rec. A record with the same ID is replaced
// in place, preserving its position in the log. Subscribers for the user are
// notified after the write; they share one copy of the record and must treat
// it as read-only.
func (m *Memory) SaveReport(ctx context.Context, userID string, rec *types.PipelineRecord) error {
	if rec == nil {
		return errors.New("store: nil record")
	}
	stored := rec.Clone()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	existing := m.records[userID]
	next := make([]*types.PipelineRecord, 0, len(existing)+1)
	replaced := false
	for _, r := range existing {
		if r.ID == stored.ID {
			next = append(next, stored)
			replaced = true
			continue
		}
		next = append(next, r)
	}
	if !replaced {
		next = append(next, stored)
	}
	m.records[userID] = next

	fns := make([]func(*types.PipelineRecord), 0, len(m.subs[userID]))
	for _, fn := range m.subs[userID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	if len(fns) > 0 {
		note := stored.Clone()
		for _, fn := range fns {
			fn(note)
		}
	}
	return nil
}

// Records returns the user's records oldest first. The returned records are
// shared with the store and must be treated as read-only; callers that need
// to mutate one should Clone it.
func (m *Memory) Records(ctx context.Context, userID string) ([]*types.PipelineRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]*types.PipelineRecord(nil), m.records[userID]...), nil
}

// SaveProfile stores a copy of the profile, replacing any existing one.
func (m *Memory) SaveProfile(ctx context.Context, userID string, profile types.HealthProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.profiles[userID] = cloneProfile(profile)
	return nil
}

// Profile returns a copy of the user's profile, or nil when none was saved.
func (m *Memory) Profile(ctx context.Context, userID string) (*types.HealthProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	stored, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	p := cloneProfile(stored)
	return &p, nil
}

// AppendSymptom adds the entry to the user's log, filling in a generated ID
// and timestamp when they are blank.
func (m *Memory) AppendSymptom(ctx context.Context, userID string, entry types.SymptomEntry) error {
	entry = normalizeSymptom(entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.symptoms[userID] = append(m.symptoms[userID], entry)
	return nil
}

// Symptoms returns the user's symptom log in the order entries were appended.
func (m *Memory) Symptoms(ctx context.Context, userID string) ([]types.SymptomEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return append([]types.SymptomEntry(nil), m.symptoms[userID]...), nil
}

// Subscribe registers fn for the user's future saves. Notifications run on
// the goroutine that called SaveReport.
func (m *Memory) Subscribe(userID string, fn func(*types.PipelineRecord)) (func(), error) {
	if fn == nil {
		return nil, errors.New("store: nil subscriber")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	id := m.nextSub
	m.nextSub++
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[int]func(*types.PipelineRecord))
	}
	m.subs[userID][id] = fn

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if fns, ok := m.subs[userID]; ok {
			delete(fns, id)
			if len(fns) == 0 {
				delete(m.subs, userID)
			}
		}
	}
	return cancel, nil
}

// Close marks the store closed. Subsequent operations return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[string]map[int]func(*types.PipelineRecord))
	return nil
}

func cloneProfile(p types.HealthProfile) types.HealthProfile {
	p.Conditions = append([]string(nil), p.Conditions...)
	p.Allergies = append([]string(nil), p.Allergies...)
	return p
}
