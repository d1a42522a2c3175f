package extract

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/i474232898/tidal-acquisition/internal/common"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

const (
	TagGridInfo         = "gridinfo"
	TagTemperature      = "temperature"
	TagTemperatureTrend = "temperaturetrend"
	TagWindSpeed        = "windspeed"
	TagWindDirection    = "winddirection"
	TagShortForecast    = "shortforecast"
	TagTemperatureLow   = "temperaturelow"
	TagTemperatureHigh  = "temperaturehigh"
)

// aggregateWindow bounds the periods feeding the low/high temperature.
const aggregateWindow = 24 * time.Hour

// GridInfo returns the hourly forecast URL of a gridpoint descriptor. The
// scan stops at the first match.
func GridInfo(payload string, now time.Time) ([]weather.Record, error) {
	sc, err := newScanner(payload)
	if err != nil {
		return nil, err
	}

	for {
		ev, err := sc.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if ev.kind != value || ev.key != "forecastHourly" {
			continue
		}
		if u, ok := ev.tok.(string); ok && u != "" {
			return []weather.Record{weather.NewText(now, TagGridInfo, u)}, nil
		}
	}
	return nil, fmt.Errorf("%w: no forecastHourly url", ErrMalformed)
}

type period struct {
	name string

	start, end time.Time
	hasStart   bool
	hasEnd     bool

	temperature   *float64
	trend         *string
	windSpeed     *string
	windDirection *string
	short         *string

	// value member of a nested quantity such as {"unitCode": ..., "value": 54}
	quantity *float64
}

func (p *period) set(ev event) error {
	if ev.tok == nil {
		return nil
	}
	switch ev.key {
	case "startTime", "endTime":
		s, ok := ev.tok.(string)
		if !ok {
			return fmt.Errorf("%w: %s is %T", ErrMalformed, ev.key, ev.tok)
		}
		at, err := common.ParseUTC(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.key == "startTime" {
			p.start, p.hasStart = at, true
		} else {
			p.end, p.hasEnd = at, true
		}
	case "temperature":
		v, err := number(ev.tok)
		if err != nil {
			return err
		}
		p.temperature = &v
	case "value":
		if v, err := number(ev.tok); err == nil {
			p.quantity = &v
		}
	case "temperatureTrend":
		p.trend = text(ev.tok)
	case "windSpeed":
		p.windSpeed = text(ev.tok)
	case "windDirection":
		p.windDirection = text(ev.tok)
	case "shortForecast":
		p.short = text(ev.tok)
	}
	return nil
}

func text(tok any) *string {
	s, ok := tok.(string)
	if !ok {
		return nil
	}
	return &s
}

// Forecast selects the first period that has not ended by now and derives
// its satellite records, stamped one second apart after the period start so
// they keep a stable order under timestamp keys. The low and high
// temperature cover the periods starting within 24h of the selected one and
// are only emitted when at least one sample contributed.
func Forecast(payload string, now time.Time) ([]weather.Record, error) {
	sc, err := newScanner(payload)
	if err != nil {
		return nil, err
	}

	var (
		stack     []*period
		current   *period
		records   []weather.Record
		low, high float64
		samples   int
	)
	for {
		ev, err := sc.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev.kind {
		case objectStart:
			stack = append(stack, &period{name: ev.key})
		case objectEnd:
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if p.name == "temperature" && p.quantity != nil && len(stack) > 0 {
				stack[len(stack)-1].temperature = p.quantity
				continue
			}
			if !p.hasStart || !p.hasEnd {
				continue
			}
			if current == nil {
				if !p.end.After(now) {
					continue
				}
				current = p
				records = append(records, satellites(p)...)
			}
			if p.temperature == nil || p.start.Before(current.start) || !p.start.Before(current.start.Add(aggregateWindow)) {
				continue
			}
			t := *p.temperature
			if samples == 0 || t < low {
				low = t
			}
			if samples == 0 || t > high {
				high = t
			}
			samples++
		case value:
			if len(stack) == 0 {
				continue
			}
			if err := stack[len(stack)-1].set(ev); err != nil {
				return nil, err
			}
		}
	}

	if samples > 0 {
		records = append(records,
			weather.NewValue(current.start.Add(6*time.Second), TagTemperatureLow, low),
			weather.NewValue(current.start.Add(7*time.Second), TagTemperatureHigh, high),
		)
	}
	return records, nil
}

func satellites(p *period) []weather.Record {
	var out []weather.Record
	if p.temperature != nil {
		out = append(out, weather.NewValue(p.start.Add(1*time.Second), TagTemperature, *p.temperature))
	}
	for i, s := range []struct {
		tag string
		val *string
	}{
		{TagTemperatureTrend, p.trend},
		{TagWindSpeed, p.windSpeed},
		{TagWindDirection, p.windDirection},
		{TagShortForecast, p.short},
	} {
		if s.val == nil {
			continue
		}
		out = append(out, weather.NewText(p.start.Add(time.Duration(i+2)*time.Second), s.tag, *s.val))
	}
	return out
}
