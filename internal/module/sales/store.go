package sales

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simp-lee/salesboard/internal/domain"
)

// Store load statuses, as reported by /health.
const (
	StatusLoading  = "loading"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// StoreStatus describes the outcome of the most recent applied load.
type StoreStatus struct {
	Status   string    `json:"status"`
	Loading  bool      `json:"loading"`
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loadedAt,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Records []domain.Sale
	StoreStatus
}

// Store holds the sale records fetched from the backend.
//
// The collection is replaced wholesale by each Load; a failed load leaves it
// empty. Loads are numbered, and a load that finishes after a newer one has
// already been applied is discarded.
type Store struct {
	repo domain.SaleRepository
	now  func() time.Time

	mu       sync.RWMutex
	records  []domain.Sale
	seq      uint64
	applied  uint64
	inflight int
	lastErr  error
	loadedAt time.Time
	hooks    []func()
}

// NewStore creates an empty store backed by repo. It reports StatusLoading
// until the first Load completes.
func NewStore(repo domain.SaleRepository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// OnReplace registers fn to run after every applied load.
func (s *Store) OnReplace(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Load fetches all records and replaces the collection. On failure the
// collection is emptied and the error is returned; there is no retry.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.mu.Unlock()

	start := s.now()
	records, err := s.repo.List(ctx)
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	s.inflight--
	if seq < s.applied {
		s.mu.Unlock()
		slog.DebugContext(ctx, "discarding stale sales load", slog.Uint64("seq", seq))
		return err
	}
	s.applied = seq
	if err != nil {
		s.records = nil
		s.lastErr = err
	} else {
		s.records = records
		s.lastErr = nil
		s.loadedAt = s.now()
	}
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	if err != nil {
		slog.WarnContext(ctx, "sales load failed", slog.Any("error", err), slog.Duration("duration", elapsed))
	} else {
		slog.InfoContext(ctx, "sales loaded", slog.Int("count", len(records)), slog.Duration("duration", elapsed))
	}

	for _, fn := range hooks {
		fn()
	}
	return err
}

// Version numbers the applied loads: 0 before the first one, then increasing
// with every load that replaces the collection.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Snapshot returns a copy of the records together with the load status.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.Sale, len(s.records))
	copy(records, s.records)
	return Snapshot{Records: records, StoreStatus: s.statusLocked()}
}

// Status reports the load status without copying records.
func (s *Store) Status() StoreStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Store) statusLocked() StoreStatus {
	st := StoreStatus{
		Loading:  s.applied == 0 || s.inflight > 0,
		Count:    len(s.records),
		LoadedAt: s.loadedAt,
	}
	switch {
	case s.applied == 0:
		st.Status = StatusLoading
	case s.lastErr != nil:
		st.Status = StatusDegraded
		st.Error = s.lastErr.Error()
	default:
		st.Status = StatusOK
	}
	return st
}
