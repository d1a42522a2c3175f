package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUTC(t *testing.T) {
	want := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-06-01T12:00:00-07:00",
		"2024-06-01T19:00:00Z",
		"2024-06-01T19:00:00",
		"2024-06-01 19:00:00",
		" 2024-06-01 19:00 ",
	} {
		got, err := ParseUTC(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	_, err := ParseUTC("06/01/2024")
	assert.Error(t, err)
}

func TestDayRange(t *testing.T) {
	from := time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 2, 1, 0, 0, 0, time.UTC)

	got := DayRange(from, to)
	assert.Equal(t, []time.Time{
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
	}, got)

	assert.Len(t, DayRange(from, from), 1)
	assert.Empty(t, DayRange(to, from))
}
