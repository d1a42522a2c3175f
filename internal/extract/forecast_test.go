package extract

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/tidal-acquisition/internal/weather"
)

var forecastNow = time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)

func TestGridInfo(t *testing.T) {
	payload := `{"properties":{
		"forecast":"https://api.weather.gov/gridpoints/SEW/14,98/forecast",
		"forecastHourly":"https://api.weather.gov/gridpoints/SEW/14,98/forecast/hourly",
		"gridId":"SEW"}}`

	got, err := GridInfo(payload, forecastNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://api.weather.gov/gridpoints/SEW/14,98/forecast/hourly", got[0].Text)
	assert.Equal(t, TagGridInfo, got[0].Tag)
}

func TestGridInfo_StopsAtFirstMatch(t *testing.T) {
	// everything after the match is never read
	payload := `{"properties":{"forecastHourly":"https://example.test/hourly", "broken": ]]]`

	got, err := GridInfo(payload, forecastNow)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/hourly", got[0].Text)
}

func TestGridInfo_Missing(t *testing.T) {
	_, err := GridInfo(`{"status":404,"title":"Data Unavailable For Requested Point"}`, forecastNow)
	assert.ErrorIs(t, err, ErrMalformed)
}

type testPeriod struct {
	start time.Time
	temp  string
}

func hourlyPayload(periods []testPeriod) string {
	var parts []string
	for i, p := range periods {
		parts = append(parts, fmt.Sprintf(`{
			"number":%d,
			"startTime":%q,
			"endTime":%q,
			"temperature":%s,
			"temperatureTrend":null,
			"probabilityOfPrecipitation":{"unitCode":"wmoUnit:percent","value":20},
			"windSpeed":"5 mph",
			"windDirection":"NW",
			"shortForecast":"Mostly Cloudy"}`,
			i+1,
			p.start.In(time.FixedZone("PDT", -7*3600)).Format(time.RFC3339),
			p.start.Add(time.Hour).In(time.FixedZone("PDT", -7*3600)).Format(time.RFC3339),
			p.temp))
	}
	return `{"type":"Feature","properties":{"updated":"2024-06-01T15:00:00+00:00","periods":[` + strings.Join(parts, ",") + `]}}`
}

func byTag(records []weather.Record) map[string]weather.Record {
	m := make(map[string]weather.Record, len(records))
	for _, r := range records {
		m[r.Tag] = r
	}
	return m
}

func TestForecast_SelectsFirstPeriodNotElapsed(t *testing.T) {
	h := forecastNow.Truncate(time.Hour)
	payload := hourlyPayload([]testPeriod{
		{h.Add(-time.Hour), "50"},
		{h, "54"},
		{h.Add(time.Hour), "58"},
	})

	got, err := Forecast(payload, forecastNow)
	require.NoError(t, err)

	tags := byTag(got)
	require.Contains(t, tags, TagTemperature)
	assert.Equal(t, 54.0, *tags[TagTemperature].Value)
	assert.Equal(t, h.Add(time.Second), tags[TagTemperature].Timestamp)
	assert.Equal(t, "5 mph", tags[TagWindSpeed].Text)
	assert.Equal(t, "NW", tags[TagWindDirection].Text)
	assert.Equal(t, "Mostly Cloudy", tags[TagShortForecast].Text)
	assert.NotContains(t, tags, TagTemperatureTrend, "null trend is skipped")

	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.Before(got[i].Timestamp), "satellites are strictly ordered")
	}
}

func TestForecast_MinMaxOverTrailingDay(t *testing.T) {
	h := forecastNow.Truncate(time.Hour)
	periods := []testPeriod{{h.Add(-time.Hour), "10"}} // elapsed, excluded
	temps := []int{54, 61, 47, 52}
	for i, temp := range temps {
		periods = append(periods, testPeriod{h.Add(time.Duration(i) * time.Hour), fmt.Sprint(temp)})
	}
	periods = append(periods, testPeriod{h.Add(24 * time.Hour), "99"}) // beyond 24h

	got, err := Forecast(hourlyPayload(periods), forecastNow)
	require.NoError(t, err)

	tags := byTag(got)
	require.Contains(t, tags, TagTemperatureLow)
	require.Contains(t, tags, TagTemperatureHigh)
	assert.Equal(t, 47.0, *tags[TagTemperatureLow].Value)
	assert.Equal(t, 61.0, *tags[TagTemperatureHigh].Value)
	assert.Equal(t, h.Add(6*time.Second), tags[TagTemperatureLow].Timestamp)
	assert.Equal(t, h.Add(7*time.Second), tags[TagTemperatureHigh].Timestamp)
}

func TestForecast_NoSamplesNoMinMax(t *testing.T) {
	h := forecastNow.Truncate(time.Hour)
	got, err := Forecast(hourlyPayload([]testPeriod{{h, "null"}}), forecastNow)
	require.NoError(t, err)

	tags := byTag(got)
	assert.NotContains(t, tags, TagTemperature)
	assert.NotContains(t, tags, TagTemperatureLow)
	assert.NotContains(t, tags, TagTemperatureHigh)
	assert.Contains(t, tags, TagShortForecast)
}

func TestForecast_QuantitativeTemperature(t *testing.T) {
	h := forecastNow.Truncate(time.Hour)
	payload := fmt.Sprintf(`{"properties":{"periods":[{
		"startTime":%q,"endTime":%q,
		"temperature":{"unitCode":"wmoUnit:degC","value":12.5}}]}}`,
		h.Format(time.RFC3339), h.Add(time.Hour).Format(time.RFC3339))

	got, err := Forecast(payload, forecastNow)
	require.NoError(t, err)
	tags := byTag(got)
	require.Contains(t, tags, TagTemperature)
	assert.Equal(t, 12.5, *tags[TagTemperature].Value)
}

func TestForecast_AllElapsed(t *testing.T) {
	h := forecastNow.Truncate(time.Hour)
	got, err := Forecast(hourlyPayload([]testPeriod{{h.Add(-2 * time.Hour), "50"}}), forecastNow)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForecast_Malformed(t *testing.T) {
	_, err := Forecast(`{"properties":{"periods":[{"startTime":"soon"}]}}`, forecastNow)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Forecast("", forecastNow)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
