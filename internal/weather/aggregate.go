package weather

import (
	"sync"
	"time"
)

// Combine merges two station readings field by field. The reading with the
// later UTCDate takes precedence (b on a tie) and its set fields win; fields
// it lacks are filled from the other reading.
func Combine(a, b StationReading) StationReading {
	newer, older := b, a
	if a.UTCDate.After(b.UTCDate) {
		newer, older = a, b
	}

	out := StationReading{
		UTCDate:        newer.UTCDate,
		Channel:        pick(newer.Channel, older.Channel),
		SensorID:       pick(newer.SensorID, older.SensorID),
		Signal:         pick(newer.Signal, older.Signal),
		LowBattery:     pick(newer.LowBattery, older.LowBattery),
		WindSpeed:      pick(newer.WindSpeed, older.WindSpeed),
		WindDirection:  pick(newer.WindDirection, older.WindDirection),
		RainTotal:      pick(newer.RainTotal, older.RainTotal),
		OutTemperature: pick(newer.OutTemperature, older.OutTemperature),
		OutHumidity:    pick(newer.OutHumidity, older.OutHumidity),
		Pressure:       pick(newer.Pressure, older.Pressure),
		InTemperature:  pick(newer.InTemperature, older.InTemperature),
		PressureTrend:  newer.PressureTrend,
		RainTotalTrend: newer.RainTotalTrend,
	}
	if len(out.PressureTrend) == 0 {
		out.PressureTrend = older.PressureTrend
	}
	if len(out.RainTotalTrend) == 0 {
		out.RainTotalTrend = older.RainTotalTrend
	}
	return out
}

func pick[T any](newer, older *T) *T {
	if newer != nil {
		return newer
	}
	return older
}

const (
	trendCapacity = 24
	trendInterval = time.Hour
)

// TrendHistory keeps the last 24 hourly samples of one measurement.
// It is safe for concurrent use.
type TrendHistory struct {
	mu     sync.Mutex
	buf    [trendCapacity]float64
	head   int // next write position
	count  int
	lastAt time.Time
}

// Add records v observed at. Samples less than an hour after the last
// accepted one are dropped; Add reports whether v was kept.
func (h *TrendHistory) Add(at time.Time, v float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count > 0 && at.Sub(h.lastAt) < trendInterval {
		return false
	}

	h.buf[h.head] = v
	h.head = (h.head + 1) % trendCapacity
	if h.count < trendCapacity {
		h.count++
	}
	h.lastAt = at
	return true
}

// Values returns the kept samples, newest first.
func (h *TrendHistory) Values() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]float64, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head-1-i+trendCapacity)%trendCapacity]
	}
	return out
}

// Len returns the number of kept samples.
func (h *TrendHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}
