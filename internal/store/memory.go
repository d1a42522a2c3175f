package store

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// SourceState holds the rolling window of a single kind.
type SourceState struct {
	mu sync.Mutex

	// key: dedup key, value: first record stored under it
	entries map[string]weather.Record

	snapshot []weather.Record
	mergedAt time.Time
}

// MemoryStore is a concurrency-safe registry of per-kind rolling windows.
// The registry lock only guards lazy creation; each kind has its own lock so
// unrelated kinds never contend.
type MemoryStore struct {
	mu     sync.Mutex
	states map[weather.Kind]*SourceState
	clock  clockwork.Clock
}

// NewMemoryStore creates an empty store. A nil clock uses real time.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		states: make(map[weather.Kind]*SourceState),
		clock:  clock,
	}
}

func (s *MemoryStore) state(kind weather.Kind) *SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[kind]
	if !ok {
		st = &SourceState{entries: make(map[string]weather.Record)}
		s.states[kind] = st
	}
	return st
}

// Fresh returns the committed snapshot while it is non-empty and younger than ttl.
// The returned slice must not be modified.
func (s *MemoryStore) Fresh(kind weather.Kind, ttl time.Duration) ([]weather.Record, bool) {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.snapshot) == 0 || st.mergedAt.IsZero() {
		return nil, false
	}
	if s.clock.Since(st.mergedAt) >= ttl {
		return nil, false
	}
	return st.snapshot, true
}

// Window returns the latest timestamp among entries at or after past, and
// those entries ordered by timestamp.
func (s *MemoryStore) Window(kind weather.Kind, past time.Time) (time.Time, []weather.Record) {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()

	var (
		latest     time.Time
		candidates []weather.Record
	)
	for _, r := range st.entries {
		if r.Timestamp.Before(past) {
			continue
		}
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
		candidates = append(candidates, r)
	}
	sortRecords(candidates)
	return latest, candidates
}

// Merge inserts each record under its dedup key unless the key is already
// taken. Existing entries are never overwritten. It returns how many
// records were inserted.
func (s *MemoryStore) Merge(kind weather.Kind, records []weather.Record) int {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()

	inserted := 0
	for _, r := range records {
		r.Timestamp = r.Timestamp.UTC()
		key := r.DedupKey()
		if _, exists := st.entries[key]; exists {
			continue
		}
		st.entries[key] = r
		inserted++
	}
	return inserted
}

// Evict removes entries older than cutoff.
func (s *MemoryStore) Evict(kind weather.Kind, cutoff time.Time) {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()

	for key, r := range st.entries {
		if r.Timestamp.Before(cutoff) {
			delete(st.entries, key)
		}
	}
}

// Commit stores snapshot as the value returned to callers and restarts the
// freshness clock.
func (s *MemoryStore) Commit(kind weather.Kind, snapshot []weather.Record) {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.snapshot = slices.Clone(snapshot)
	st.mergedAt = s.clock.Now()
}

// Len reports how many entries a kind currently holds.
func (s *MemoryStore) Len(kind weather.Kind) int {
	st := s.state(kind)

	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

func sortRecords(records []weather.Record) {
	slices.SortFunc(records, func(a, b weather.Record) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.Tag < b.Tag:
			return -1
		case a.Tag > b.Tag:
			return 1
		}
		return 0
	})
}
