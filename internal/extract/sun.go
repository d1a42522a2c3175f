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
	TagSunrise = "sunrise"
	TagSunset  = "sunset"
)

// Sun extracts the sunrise and sunset of a single-day payload.
func Sun(payload string) ([]weather.Record, error) {
	sc, err := newScanner(payload)
	if err != nil {
		return nil, err
	}

	var (
		rises, sets []time.Time
		status      string
	)
	for {
		ev, err := sc.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if ev.kind != value {
			continue
		}

		switch ev.key {
		case "status":
			if ev.depth == 1 {
				status, _ = ev.tok.(string)
			}
		case TagSunrise, TagSunset:
			s, ok := ev.tok.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %T", ErrMalformed, ev.key, ev.tok)
			}
			at, err := common.ParseUTC(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if ev.key == TagSunrise {
				rises = append(rises, at)
			} else {
				sets = append(sets, at)
			}
		}
	}

	if status != "" && status != "OK" {
		return nil, fmt.Errorf("%w: upstream status %q", ErrMalformed, status)
	}
	if len(rises) != 1 || len(sets) != 1 {
		return nil, fmt.Errorf("%w: expected one sunrise and one sunset, got %d and %d", ErrMalformed, len(rises), len(sets))
	}

	return []weather.Record{
		weather.NewMarker(rises[0], TagSunrise),
		weather.NewMarker(sets[0], TagSunset),
	}, nil
}
