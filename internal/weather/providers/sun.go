package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/i474232898/tidal-acquisition/internal/common"
	"github.com/i474232898/tidal-acquisition/internal/extract"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// maxConcurrentDays bounds in-flight sunrise-sunset queries.
const maxConcurrentDays = 3

// SunProvider retrieves sunrise and sunset times, one query per calendar day.
type SunProvider struct {
	lat, lng float64
	baseURL  string
	fetcher  *Fetcher
}

func NewSunProvider(fetcher *Fetcher, lat, lng float64) *SunProvider {
	return &SunProvider{
		lat:     lat,
		lng:     lng,
		baseURL: "https://api.sunrise-sunset.org/json",
		fetcher: fetcher,
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *SunProvider) WithBaseURL(u string) *SunProvider {
	p.baseURL = u
	return p
}

func (p *SunProvider) Kind() weather.Kind {
	return weather.KindSun
}

// Retrieve queries every day in [from, to]. Any failed day fails the range.
func (p *SunProvider) Retrieve(ctx context.Context, from, to time.Time) ([]weather.Record, error) {
	days := common.DayRange(from, to)
	perDay := make([][]weather.Record, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDays)
	for i, day := range days {
		g.Go(func() error {
			body, err := p.fetcher.Get(gctx, p.dayURL(day))
			if err != nil {
				return err
			}
			records, err := extract.Sun(body)
			if err != nil {
				return fmt.Errorf("sun %s: %w", day.Format("2006-01-02"), err)
			}
			perDay[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []weather.Record
	for _, records := range perDay {
		out = append(out, records...)
	}
	return out, nil
}

func (p *SunProvider) dayURL(day time.Time) string {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(p.lat, 'f', -1, 64))
	values.Set("lng", strconv.FormatFloat(p.lng, 'f', -1, 64))
	values.Set("date", day.Format("2006-01-02"))
	values.Set("formatted", "0")
	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}
