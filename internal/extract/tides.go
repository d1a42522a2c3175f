package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/i474232898/tidal-acquisition/internal/common"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

const (
	TagTide = "tide"
	// TagHiLo marks a combined extreme: Series is [low, high].
	TagHiLo = "hilo"
)

type triple struct {
	at    time.Time
	value float64
	tag   string

	hasTime  bool
	hasValue bool
}

// Tides extracts one record per prediction.
func Tides(payload string) ([]weather.Record, error) {
	triples, err := scanTriples(payload)
	if err != nil {
		return nil, err
	}

	records := make([]weather.Record, 0, len(triples))
	for _, tr := range triples {
		records = append(records, weather.NewValue(tr.at, TagTide, tr.value))
	}
	return records, nil
}

// Extremes pairs consecutive low and high predictions into one record each.
// A repeated tag before the pair is complete, or a tag that is neither low
// nor high, fails the whole payload. A trailing half pair is dropped.
func Extremes(payload string) ([]weather.Record, error) {
	triples, err := scanTriples(payload)
	if err != nil {
		return nil, err
	}

	var (
		records   []weather.Record
		low, high *triple
	)
	for i := range triples {
		tr := &triples[i]
		switch extremeTag(tr.tag) {
		case "low":
			if low != nil {
				return nil, fmt.Errorf("%w: duplicate low at %s", ErrMalformed, tr.at.Format(time.RFC3339))
			}
			low = tr
		case "high":
			if high != nil {
				return nil, fmt.Errorf("%w: duplicate high at %s", ErrMalformed, tr.at.Format(time.RFC3339))
			}
			high = tr
		default:
			return nil, fmt.Errorf("%w: unrecognized extreme tag %q", ErrMalformed, tr.tag)
		}

		if low != nil && high != nil {
			at := low.at
			if high.at.Before(at) {
				at = high.at
			}
			records = append(records, weather.NewSeries(at, TagHiLo, []float64{low.value, high.value}))
			low, high = nil, nil
		}
	}
	return records, nil
}

func extremeTag(tag string) string {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "l", "low":
		return "low"
	case "h", "high":
		return "high"
	}
	return ""
}

// scanTriples collects every object carrying a "t" member.
func scanTriples(payload string) ([]triple, error) {
	sc, err := newScanner(payload)
	if err != nil {
		return nil, err
	}

	var (
		out      []triple
		stack    []*triple
		upstream string
		inError  bool
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
			if ev.key == "error" && ev.depth == 1 {
				inError = true
			}
			stack = append(stack, &triple{})
		case objectEnd:
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !cur.hasTime {
				continue
			}
			if !cur.hasValue {
				return nil, fmt.Errorf("%w: prediction at %s has no value", ErrMalformed, cur.at.Format(time.RFC3339))
			}
			out = append(out, *cur)
		case value:
			if inError && ev.key == "message" {
				upstream, _ = ev.tok.(string)
			}
			if len(stack) == 0 || ev.tok == nil {
				continue
			}
			cur := stack[len(stack)-1]
			switch ev.key {
			case "t":
				s, ok := ev.tok.(string)
				if !ok {
					return nil, fmt.Errorf("%w: prediction time is %T", ErrMalformed, ev.tok)
				}
				at, err := common.ParseUTC(s)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
				}
				cur.at = at
				cur.hasTime = true
			case "v":
				v, err := number(ev.tok)
				if err != nil {
					return nil, err
				}
				cur.value = v
				cur.hasValue = true
			case "type":
				cur.tag, _ = ev.tok.(string)
			}
		}
	}

	if inError {
		return nil, fmt.Errorf("%w: upstream error: %s", ErrMalformed, upstream)
	}
	return out, nil
}
