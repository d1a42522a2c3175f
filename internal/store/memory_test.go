package store

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/tidal-acquisition/internal/weather"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMerge_Idempotent(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))
	r := weather.NewValue(base, "tide", 4.2)

	assert.Equal(t, 1, s.Merge(weather.KindTide, []weather.Record{r}))
	assert.Equal(t, 0, s.Merge(weather.KindTide, []weather.Record{r}))
	assert.Equal(t, 1, s.Len(weather.KindTide))
}

func TestMerge_FirstWriteWins(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))

	s.Merge(weather.KindTide, []weather.Record{weather.NewValue(base, "tide", 1)})
	s.Merge(weather.KindTide, []weather.Record{weather.NewValue(base.Add(300*time.Millisecond), "tide", 2)})

	_, got := s.Window(weather.KindTide, base.Add(-time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, *got[0].Value)
}

func TestMerge_NormalizesToUTC(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))
	pst := time.FixedZone("PST", -8*3600)
	r := weather.Record{Timestamp: base.In(pst), Tag: "sunrise"}

	s.Merge(weather.KindSun, []weather.Record{r})

	_, got := s.Window(weather.KindSun, base.Add(-time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())
}

func TestWindow_LatestAndOrdering(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))
	s.Merge(weather.KindTide, []weather.Record{
		weather.NewValue(base.Add(2*time.Hour), "tide", 3),
		weather.NewValue(base.Add(-2*time.Hour), "tide", 0),
		weather.NewValue(base.Add(time.Hour), "tide", 2),
	})

	latest, got := s.Window(weather.KindTide, base)
	assert.Equal(t, base.Add(2*time.Hour), latest)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(time.Hour), got[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Hour), got[1].Timestamp)
}

func TestEvict(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))
	s.Merge(weather.KindTide, []weather.Record{
		weather.NewValue(base.Add(-25*time.Hour), "tide", 1),
		weather.NewValue(base, "tide", 2),
	})

	s.Evict(weather.KindTide, base.Add(-24*time.Hour))

	assert.Equal(t, 1, s.Len(weather.KindTide))
}

func TestFresh(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	s := NewMemoryStore(clock)

	_, ok := s.Fresh(weather.KindTide, time.Hour)
	assert.False(t, ok, "nothing committed yet")

	s.Commit(weather.KindTide, nil)
	_, ok = s.Fresh(weather.KindTide, time.Hour)
	assert.False(t, ok, "empty snapshot is never fresh")

	s.Commit(weather.KindTide, []weather.Record{weather.NewValue(base, "tide", 1)})
	snap, ok := s.Fresh(weather.KindTide, time.Hour)
	assert.True(t, ok)
	assert.Len(t, snap, 1)

	clock.Advance(time.Hour)
	_, ok = s.Fresh(weather.KindTide, time.Hour)
	assert.False(t, ok, "ttl elapsed")
}

func TestKindsAreIndependent(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))
	s.Merge(weather.KindTide, []weather.Record{weather.NewValue(base, "tide", 1)})
	s.Commit(weather.KindTide, []weather.Record{weather.NewValue(base, "tide", 1)})

	assert.Equal(t, 0, s.Len(weather.KindSun))
	_, ok := s.Fresh(weather.KindSun, time.Hour)
	assert.False(t, ok)
}

func TestConcurrentMerge(t *testing.T) {
	s := NewMemoryStore(clockwork.NewFakeClockAt(base))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Merge(weather.KindTide, []weather.Record{weather.NewValue(base.Add(time.Duration(j)*time.Minute), "tide", float64(j))})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len(weather.KindTide))
}
