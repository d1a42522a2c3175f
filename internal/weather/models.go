package weather

import (
	"fmt"
	"time"
)

// Kind identifies one upstream data category.
type Kind string

const (
	KindTide     Kind = "tide"
	KindExtreme  Kind = "extreme"
	KindSun      Kind = "sun"
	KindGridInfo Kind = "gridinfo"
	KindForecast Kind = "forecast"
	KindStation  Kind = "station"
)

// Kinds lists every kind in refresh order.
var Kinds = []Kind{KindTide, KindExtreme, KindSun, KindGridInfo, KindForecast, KindStation}

// ParseKind maps a path or config value onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Policy is the rolling-window policy of a kind.
type Policy struct {
	DeleteAfter      time.Duration
	Lookahead        time.Duration
	CacheTTL         time.Duration
	RefetchThreshold time.Duration

	// AlwaysRefetch forces one fetch per cache miss regardless of how far
	// ahead the stored data reaches.
	AlwaysRefetch bool

	// Cached is false for kinds that are looked up on every call.
	Cached bool
}

// Policy returns the fixed policy for k.
func (k Kind) Policy() Policy {
	switch k {
	case KindTide:
		return Policy{DeleteAfter: 24 * time.Hour, Lookahead: 72 * time.Hour, CacheTTL: 2 * time.Hour, RefetchThreshold: 24 * time.Hour, Cached: true}
	case KindExtreme:
		return Policy{DeleteAfter: 24 * time.Hour, Lookahead: 14 * 24 * time.Hour, CacheTTL: 2 * time.Hour, RefetchThreshold: 24 * time.Hour, Cached: true}
	case KindSun:
		return Policy{DeleteAfter: 24 * time.Hour, Lookahead: 7 * 24 * time.Hour, CacheTTL: 2 * time.Hour, RefetchThreshold: 24 * time.Hour, Cached: true}
	case KindForecast:
		return Policy{DeleteAfter: time.Hour, CacheTTL: 15 * time.Minute, Cached: true}
	case KindStation:
		return Policy{DeleteAfter: time.Minute, CacheTTL: time.Minute, AlwaysRefetch: true, Cached: true}
	default:
		return Policy{}
	}
}

// Record is a single normalized, time-stamped reading.
// Exactly one of Value, Text or Series is meaningful for a given Tag;
// sunrise and sunset records carry only their tag.
type Record struct {
	Timestamp time.Time `json:"timestamp"` // always UTC
	Value     *float64  `json:"value,omitempty"`
	Text      string    `json:"text,omitempty"`
	Series    []float64 `json:"series,omitempty"`
	Tag       string    `json:"tag"`
}

// DedupKey formats the record timestamp at one-second resolution.
func (r Record) DedupKey() string {
	return r.Timestamp.UTC().Format("20060102 15 04 05")
}

// NewValue builds a numeric record.
func NewValue(ts time.Time, tag string, v float64) Record {
	return Record{Timestamp: ts.UTC(), Value: &v, Tag: tag}
}

// NewText builds a text record.
func NewText(ts time.Time, tag, text string) Record {
	return Record{Timestamp: ts.UTC(), Text: text, Tag: tag}
}

// NewSeries builds a series record. The series is copied.
func NewSeries(ts time.Time, tag string, series []float64) Record {
	return Record{Timestamp: ts.UTC(), Series: append([]float64(nil), series...), Tag: tag}
}

// NewMarker builds a record that carries only its tag.
func NewMarker(ts time.Time, tag string) Record {
	return Record{Timestamp: ts.UTC(), Tag: tag}
}

// StationReading is the fused weather-station view served by the relay.
// Nil fields have not been reported yet.
type StationReading struct {
	UTCDate        time.Time `json:"utcDate"`
	Channel        *int      `json:"channel,omitempty"`
	SensorID       *int      `json:"sensorId,omitempty"`
	Signal         *int      `json:"signal,omitempty"`
	LowBattery     *bool     `json:"lowBattery,omitempty"`
	WindSpeed      *float64  `json:"windSpeed,omitempty"`      // mph
	WindDirection  *float64  `json:"windDirection,omitempty"`  // degrees
	RainTotal      *float64  `json:"rainTotal,omitempty"`      // inches
	OutTemperature *float64  `json:"outTemperature,omitempty"` // fahrenheit
	OutHumidity    *float64  `json:"outHumidity,omitempty"`    // percent
	Pressure       *float64  `json:"pressure,omitempty"`       // inHg
	InTemperature  *float64  `json:"inTemperature,omitempty"`  // fahrenheit

	// Trends are newest first.
	PressureTrend  []float64 `json:"pressureTrend,omitempty"`
	RainTotalTrend []float64 `json:"rainTotalTrend,omitempty"`
}

// HasValue reports whether any measured field is set.
func (r StationReading) HasValue() bool {
	return r.Channel != nil ||
		r.SensorID != nil ||
		r.Signal != nil ||
		r.LowBattery != nil ||
		r.WindSpeed != nil ||
		r.WindDirection != nil ||
		r.RainTotal != nil ||
		r.OutTemperature != nil ||
		r.OutHumidity != nil ||
		r.Pressure != nil ||
		r.InTemperature != nil
}
