package providers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/tidal-acquisition/internal/extract"
	"github.com/i474232898/tidal-acquisition/internal/locator"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// StationLocator is the part of the locator the station pipeline needs.
type StationLocator interface {
	Address(ctx context.Context) (string, locator.Status)
	Invalidate(addr string)
	Port() int
}

// StationProvider reads the local weather station found by the locator.
type StationProvider struct {
	locator StationLocator
	fetcher *Fetcher
}

func NewStationProvider(loc StationLocator, fetcher *Fetcher) *StationProvider {
	return &StationProvider{locator: loc, fetcher: fetcher}
}

func (p *StationProvider) Kind() weather.Kind {
	return weather.KindStation
}

// Retrieve returns weather.ErrNoData while the station is unknown. A failed
// fetch invalidates the address so the next call rescans.
func (p *StationProvider) Retrieve(ctx context.Context, _, _ time.Time) ([]weather.Record, error) {
	addr, status := p.locator.Address(ctx)
	if status != locator.Addressed {
		return nil, fmt.Errorf("station %s: %w", status, weather.ErrNoData)
	}

	body, err := p.fetcher.Get(ctx, locator.URL(addr, p.locator.Port()))
	if err != nil {
		log.Printf("ERROR: station: fetch from %s failed: %v", addr, err)
		p.locator.Invalidate(addr)
		return nil, err
	}
	return extract.Station(body)
}
