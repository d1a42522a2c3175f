package weather

import (
	"context"
	"errors"
	"time"
)

// ErrNoData is returned by a pipeline that has nothing to fetch yet, such as
// a station whose address has not been discovered. It is not a failure.
var ErrNoData = errors.New("no data available yet")

// Pipeline fetches and extracts the records of one kind for a time range.
// A pipeline may issue several HTTP calls.
type Pipeline interface {
	Kind() Kind
	Retrieve(ctx context.Context, from, to time.Time) ([]Record, error)
}

// Store is the contract the per-kind rolling-window store must satisfy.
type Store interface {
	// Fresh returns the last committed snapshot if it is non-empty and
	// younger than ttl.
	Fresh(kind Kind, ttl time.Duration) ([]Record, bool)
	// Window returns the latest timestamp and the records at or after past.
	Window(kind Kind, past time.Time) (time.Time, []Record)
	Merge(kind Kind, records []Record) int
	Evict(kind Kind, cutoff time.Time)
	Commit(kind Kind, snapshot []Record)
}
