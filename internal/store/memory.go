package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Client implementation. It is safe for
// concurrent use and intended primarily for testing.
type Memory struct {
	mu   sync.Mutex
	recs map[string]*Recording
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[string]*Recording)}
}

func (m *Memory) Create(_ context.Context, rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = StatusPending

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs[rec.ID] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) ListPending(_ context.Context) ([]*Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*Recording
	for _, rec := range m.recs {
		if rec.Status == StatusPending {
			cp := *rec
			pending = append(pending, &cp)
		}
	}
	// Deterministic id-lexicographic order, matching the badger iterator.
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	return pending, nil
}

func (m *Memory) Claim(_ context.Context, id string) (*Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status != StatusPending {
		return nil, fmt.Errorf("%w: status is %q", ErrConflict, rec.Status)
	}
	rec.Status = StatusProcessing
	rec.ClaimedAt = time.Now().UTC()
	cp := *rec
	return &cp, nil
}

func (m *Memory) SaveResult(_ context.Context, id, transcript string) error {
	return m.mutate(id, func(rec *Recording) {
		rec.Status = StatusCompleted
		rec.Transcription = transcript
		rec.Error = ""
		rec.ClaimedAt = time.Time{}
	})
}

func (m *Memory) MarkFailed(_ context.Context, id, detail string) error {
	return m.mutate(id, func(rec *Recording) {
		rec.Status = StatusFailed
		rec.Error = detail
		rec.ClaimedAt = time.Time{}
	})
}

func (m *Memory) RequeueStale(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	requeued := 0
	for _, rec := range m.recs {
		if rec.Status == StatusProcessing && !rec.ClaimedAt.IsZero() && rec.ClaimedAt.Before(cutoff) {
			rec.Status = StatusPending
			rec.ClaimedAt = time.Time{}
			requeued++
		}
	}
	return requeued, nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) mutate(id string, fn func(*Recording)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(rec)
	return nil
}
