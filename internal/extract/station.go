package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/i474232898/tidal-acquisition/internal/common"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

const (
	TagSignal         = "signal"
	TagLowBattery     = "lowbattery"
	TagRainTotal      = "raintotal"
	TagOutTemperature = "outtemperature"
	TagInTemperature  = "intemperature"
	TagOutHumidity    = "outhumidity"
	TagPressure       = "pressure"
	TagPressureTrend  = "pressuretrend"
	TagRainTotalTrend = "raintotaltrend"
)

var stationScalars = map[string]string{
	"signal":         TagSignal,
	"lowBattery":     TagLowBattery,
	"windSpeed":      TagWindSpeed,
	"windDirection":  TagWindDirection,
	"rainTotal":      TagRainTotal,
	"outTemperature": TagOutTemperature,
	"inTemperature":  TagInTemperature,
	"outHumidity":    TagOutHumidity,
	"pressure":       TagPressure,
}

var stationSeries = map[string]string{
	"pressureTrend":  TagPressureTrend,
	"rainTotalTrend": TagRainTotalTrend,
}

var signalNames = map[string]float64{"none": 0, "low": 1, "medium": 2, "high": 3}

type stationField struct {
	tag    string
	value  float64
	series []float64
	isList bool
}

// Station extracts a flat station reading. Fields are stamped at strictly
// increasing one-second offsets from utcDate in payload order.
func Station(payload string) ([]weather.Record, error) {
	sc, err := newScanner(payload)
	if err != nil {
		return nil, err
	}

	var (
		fields  []stationField
		open    *stationField
		base    time.Time
		hasBase bool
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
		case arrayStart:
			if tag, ok := stationSeries[ev.key]; ok && ev.depth == 1 {
				open = &stationField{tag: tag, series: []float64{}, isList: true}
			}
		case arrayEnd:
			if open != nil && ev.depth == 1 {
				fields = append(fields, *open)
				open = nil
			}
		case value:
			if open != nil && ev.depth == 2 {
				v, err := number(ev.tok)
				if err != nil {
					return nil, err
				}
				open.series = append(open.series, v)
				continue
			}
			if ev.depth != 1 || ev.tok == nil {
				continue
			}
			if ev.key == "utcDate" {
				s, ok := ev.tok.(string)
				if !ok {
					return nil, fmt.Errorf("%w: utcDate is %T", ErrMalformed, ev.tok)
				}
				if base, err = common.ParseUTC(s); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				hasBase = true
				continue
			}
			tag, ok := stationScalars[ev.key]
			if !ok {
				continue
			}
			v, err := stationScalar(ev.tok)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ev.key, err)
			}
			fields = append(fields, stationField{tag: tag, value: v})
		}
	}

	if !hasBase {
		return nil, fmt.Errorf("%w: station reading has no utcDate", ErrMalformed)
	}

	records := make([]weather.Record, 0, len(fields))
	for i, f := range fields {
		at := base.Add(time.Duration(i+1) * time.Second)
		if f.isList {
			records = append(records, weather.NewSeries(at, f.tag, f.series))
			continue
		}
		records = append(records, weather.NewValue(at, f.tag, f.value))
	}
	return records, nil
}

func stationScalar(tok json.Token) (float64, error) {
	switch v := tok.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if n, ok := signalNames[strings.ToLower(v)]; ok {
			return n, nil
		}
	}
	return number(tok)
}
