package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/i474232898/tidal-acquisition/internal/extract"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// NOAAProvider retrieves tide predictions, or high/low extremes, from the
// CO-OPS data getter.
type NOAAProvider struct {
	kind      weather.Kind
	stationID string
	baseURL   string
	fetcher   *Fetcher
}

// NewTideProvider creates the tide prediction pipeline.
func NewTideProvider(fetcher *Fetcher, stationID string) *NOAAProvider {
	return &NOAAProvider{
		kind:      weather.KindTide,
		stationID: stationID,
		baseURL:   "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter",
		fetcher:   fetcher,
	}
}

// NewExtremeProvider creates the high/low extremes pipeline.
func NewExtremeProvider(fetcher *Fetcher, stationID string) *NOAAProvider {
	p := NewTideProvider(fetcher, stationID)
	p.kind = weather.KindExtreme
	return p
}

// WithBaseURL overrides the upstream endpoint.
func (p *NOAAProvider) WithBaseURL(u string) *NOAAProvider {
	p.baseURL = u
	return p
}

func (p *NOAAProvider) Kind() weather.Kind {
	return p.kind
}

func (p *NOAAProvider) Retrieve(ctx context.Context, from, to time.Time) ([]weather.Record, error) {
	values := url.Values{}
	values.Set("begin_date", from.UTC().Format("20060102"))
	values.Set("end_date", to.UTC().Format("20060102"))
	values.Set("station", p.stationID)
	values.Set("time_zone", "gmt")
	values.Set("units", "english")
	values.Set("format", "json")
	values.Set("datum", "mllw")
	values.Set("product", "predictions")
	if p.kind == weather.KindExtreme {
		values.Set("interval", "hilo")
	}

	body, err := p.fetcher.Get(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return nil, err
	}

	if p.kind == weather.KindExtreme {
		return extract.Extremes(body)
	}
	return extract.Tides(body)
}
