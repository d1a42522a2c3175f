package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStation(t *testing.T) {
	payload := `{
		"utcDate":"2024-06-01T17:30:05.1234567Z",
		"channel":12,
		"sensorId":1234,
		"signal":3,
		"lowBattery":false,
		"windSpeed":4.5,
		"windDirection":247.5,
		"rainTotal":null,
		"outTemperature":58.1,
		"outHumidity":71,
		"pressure":30.02,
		"inTemperature":69.8,
		"pressureTrend":[30.02,29.98,29.95],
		"rainTotalTrend":[]
	}`

	got, err := Station(payload)
	require.NoError(t, err)

	wantTags := []string{
		TagSignal, TagLowBattery, TagWindSpeed, TagWindDirection,
		TagOutTemperature, TagOutHumidity, TagPressure, TagInTemperature,
		TagPressureTrend, TagRainTotalTrend,
	}
	require.Len(t, got, len(wantTags))

	base := time.Date(2024, 6, 1, 17, 30, 5, 123456700, time.UTC)
	for i, r := range got {
		assert.Equal(t, wantTags[i], r.Tag)
		assert.Equal(t, base.Add(time.Duration(i+1)*time.Second), r.Timestamp)
	}

	assert.Equal(t, 3.0, *got[0].Value)
	assert.Equal(t, 0.0, *got[1].Value)
	assert.Equal(t, []float64{30.02, 29.98, 29.95}, got[8].Series)
	assert.Empty(t, got[9].Series)

	keys := make(map[string]bool)
	for _, r := range got {
		assert.False(t, keys[r.DedupKey()], "dedup keys must be distinct")
		keys[r.DedupKey()] = true
	}
}

func TestStation_BaseAfterFields(t *testing.T) {
	got, err := Station(`{"pressure":29.9,"signal":"High","utcDate":"2024-06-01T17:30:00Z"}`)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, TagPressure, got[0].Tag)
	assert.Equal(t, 3.0, *got[1].Value)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
}

func TestStation_Failures(t *testing.T) {
	_, err := Station(`{"pressure":29.9}`)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Station(`{"utcDate":"2024-06-01T17:30:00Z","pressure":"rising"}`)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Station(`not json`)
	assert.ErrorIs(t, err, ErrMalformed)
}
