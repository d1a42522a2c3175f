package weather

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/tidal-acquisition/internal/observability"
)

// maxRefreshAttempts bounds the read-fetch-evict loop of one cache miss.
const maxRefreshAttempts = 3

// Service serves the current records of each kind, refreshing the store from
// the kind's pipeline when the cached snapshot is stale.
type Service struct {
	store     Store
	pipelines map[Kind]Pipeline
	clock     clockwork.Clock
	metrics   *observability.Metrics
}

// NewService creates a new Service. A nil clock uses the real clock and nil
// metrics are replaced by an unregistered set.
func NewService(store Store, pipelines []Pipeline, clock clockwork.Clock, metrics *observability.Metrics) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}

	byKind := make(map[Kind]Pipeline, len(pipelines))
	for _, p := range pipelines {
		byKind[p.Kind()] = p
	}

	return &Service{
		store:     store,
		pipelines: byKind,
		clock:     clock,
		metrics:   metrics,
	}
}

// Kinds returns the kinds that have a pipeline, in declaration order.
func (s *Service) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds {
		if _, ok := s.pipelines[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Current returns the records of kind that are still within its retention
// window. It never fails: every error, panic included, is logged and yields
// an empty result, leaving the next call to retry. The returned slice must
// not be modified.
func (s *Service) Current(ctx context.Context, kind Kind) (records []Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: %s: recovered from panic: %v", kind, r)
			s.metrics.Refreshes.WithLabelValues(string(kind), "failed").Inc()
			records = nil
		}
	}()

	p, ok := s.pipelines[kind]
	if !ok {
		log.Printf("ERROR: %s: no pipeline configured", kind)
		return nil
	}

	policy := kind.Policy()
	if !policy.Cached {
		return s.lookup(ctx, p)
	}

	if snapshot, ok := s.store.Fresh(kind, policy.CacheTTL); ok {
		s.metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
		return snapshot
	}
	s.metrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()

	return s.refresh(ctx, p, policy)
}

// lookup retrieves an uncached kind directly.
func (s *Service) lookup(ctx context.Context, p Pipeline) []Record {
	now := s.clock.Now().UTC()
	records, err := p.Retrieve(ctx, now, now)
	if err != nil {
		s.logFailure(p.Kind(), "", err)
		return nil
	}
	return records
}

func (s *Service) refresh(ctx context.Context, p Pipeline, policy Policy) []Record {
	kind := p.Kind()
	id := uuid.NewString()
	start := s.clock.Now()

	now := start.UTC()
	past := now.Add(-policy.DeleteAfter)
	future := now.Add(policy.Lookahead)
	horizon := now.Add(policy.RefetchThreshold)

	log.Printf("DEBUG: %s [%s]: refreshing window %s to %s", kind, id, past.Format(time.RFC3339), future.Format(time.RFC3339))

	// After one successful fetch the horizon check is skipped, otherwise
	// always-refetch kinds would never settle on their candidates.
	fetched := false
	var result []Record
	for attempt := 1; attempt <= maxRefreshAttempts && len(result) == 0; attempt++ {
		latest, candidates := s.store.Window(kind, past)

		stale := policy.AlwaysRefetch || horizon.After(latest)
		if latest.IsZero() || len(candidates) == 0 || (!fetched && stale) {
			retrieved, err := p.Retrieve(ctx, past, future)
			if err != nil {
				s.logFailure(kind, id, err)
				return nil
			}
			inserted := s.store.Merge(kind, retrieved)
			log.Printf("DEBUG: %s [%s]: attempt %d merged %d of %d records", kind, id, attempt, inserted, len(retrieved))
			fetched = true
			candidates = nil
		}

		s.store.Evict(kind, past)
		result = candidates
	}

	s.metrics.RefreshDuration.WithLabelValues(string(kind)).Observe(s.clock.Since(start).Seconds())
	if len(result) == 0 {
		log.Printf("INFO: %s [%s]: no records after %d attempts", kind, id, maxRefreshAttempts)
		s.metrics.Refreshes.WithLabelValues(string(kind), "empty").Inc()
		return nil
	}

	s.store.Commit(kind, result)
	s.metrics.SnapshotRecords.WithLabelValues(string(kind)).Set(float64(len(result)))
	s.metrics.Refreshes.WithLabelValues(string(kind), "ok").Inc()
	log.Printf("INFO: %s [%s]: committed %d records", kind, id, len(result))
	return result
}

func (s *Service) logFailure(kind Kind, id string, err error) {
	if errors.Is(err, ErrNoData) {
		log.Printf("DEBUG: %s [%s]: %v", kind, id, err)
		s.metrics.Refreshes.WithLabelValues(string(kind), "nodata").Inc()
		return
	}
	log.Printf("ERROR: %s [%s]: retrieval failed: %v", kind, id, err)
	s.metrics.ExtractionFailures.WithLabelValues(string(kind)).Inc()
	s.metrics.Refreshes.WithLabelValues(string(kind), "failed").Inc()
}
