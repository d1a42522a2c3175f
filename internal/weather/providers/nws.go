package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/tidal-acquisition/internal/extract"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// GridInfoProvider resolves the hourly forecast URL for a location.
// It is looked up on every call and never cached.
type GridInfoProvider struct {
	lat, lng float64
	baseURL  string
	fetcher  *Fetcher
	clock    clockwork.Clock
}

func NewGridInfoProvider(fetcher *Fetcher, lat, lng float64, clock clockwork.Clock) *GridInfoProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GridInfoProvider{
		lat:     lat,
		lng:     lng,
		baseURL: "https://api.weather.gov/points",
		fetcher: fetcher,
		clock:   clock,
	}
}

// WithBaseURL overrides the upstream endpoint.
func (p *GridInfoProvider) WithBaseURL(u string) *GridInfoProvider {
	p.baseURL = u
	return p
}

func (p *GridInfoProvider) Kind() weather.Kind {
	return weather.KindGridInfo
}

func (p *GridInfoProvider) Retrieve(ctx context.Context, _, _ time.Time) ([]weather.Record, error) {
	u := fmt.Sprintf("%s/%s,%s", p.baseURL,
		strconv.FormatFloat(p.lat, 'f', 4, 64),
		strconv.FormatFloat(p.lng, 'f', 4, 64))

	body, err := p.fetcher.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	return extract.GridInfo(body, p.clock.Now())
}

// ForecastProvider looks up the grid and then fetches its hourly forecast.
type ForecastProvider struct {
	grid    *GridInfoProvider
	fetcher *Fetcher
	clock   clockwork.Clock
}

func NewForecastProvider(grid *GridInfoProvider, fetcher *Fetcher, clock clockwork.Clock) *ForecastProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ForecastProvider{grid: grid, fetcher: fetcher, clock: clock}
}

func (p *ForecastProvider) Kind() weather.Kind {
	return weather.KindForecast
}

func (p *ForecastProvider) Retrieve(ctx context.Context, from, to time.Time) ([]weather.Record, error) {
	grid, err := p.grid.Retrieve(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("grid lookup: %w", err)
	}
	if len(grid) != 1 {
		return nil, fmt.Errorf("grid lookup returned %d results", len(grid))
	}

	body, err := p.fetcher.Get(ctx, grid[0].Text)
	if err != nil {
		return nil, err
	}
	return extract.Forecast(body, p.clock.Now())
}
