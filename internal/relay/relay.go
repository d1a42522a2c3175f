// Package relay fuses weather-station broadcasts into one reading and serves
// it over HTTP on the station endpoint the locator probes.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/tidal-acquisition/internal/weather"
)

const maxDatagram = 4096

// Relay holds the fused station reading and its hourly trends.
type Relay struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	reading weather.StationReading
	seen    bool

	pressure  weather.TrendHistory
	rainTotal weather.TrendHistory
}

func New(clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{clock: clock}
}

// Ingest combines reading into the fused view. A reading without a date is
// stamped with the current time.
func (r *Relay) Ingest(reading weather.StationReading) {
	if reading.UTCDate.IsZero() {
		reading.UTCDate = r.clock.Now()
	}
	reading.UTCDate = reading.UTCDate.UTC()

	r.mu.Lock()
	if r.seen {
		r.reading = weather.Combine(r.reading, reading)
	} else {
		r.reading = reading
		r.seen = true
	}
	r.mu.Unlock()

	if reading.Pressure != nil {
		r.pressure.Add(reading.UTCDate, *reading.Pressure)
	}
	if reading.RainTotal != nil {
		r.rainTotal.Add(reading.UTCDate, *reading.RainTotal)
	}
}

// Reading returns the fused reading with its trends, and false until the
// first reading arrives.
func (r *Relay) Reading() (weather.StationReading, bool) {
	r.mu.RLock()
	out, seen := r.reading, r.seen
	r.mu.RUnlock()

	if trend := r.pressure.Values(); len(trend) > 0 {
		out.PressureTrend = trend
	}
	if trend := r.rainTotal.Values(); len(trend) > 0 {
		out.RainTotalTrend = trend
	}
	return out, seen
}

// App returns a Fiber app serving GET /weather.
func (r *Relay) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "station-relay",
		DisableStartupMessage: true,
	})
	r.Register(app)
	return app
}

// Register adds the station endpoint to router.
func (r *Relay) Register(router fiber.Router) {
	router.Get("/weather", func(c *fiber.Ctx) error {
		reading, ok := r.Reading()
		if !ok {
			return fiber.NewError(fiber.StatusServiceUnavailable, "no station reading yet")
		}
		return c.JSON(reading)
	})
}

// ListenUDP ingests JSON readings sent to addr until ctx is done.
func (r *Relay) ListenUDP(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	log.Printf("INFO: relay: listening for station datagrams on %s", conn.LocalAddr())
	return r.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is done. It closes conn.
func (r *Relay) Serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		var reading weather.StationReading
		if err := json.Unmarshal(buf[:n], &reading); err != nil {
			log.Printf("DEBUG: relay: dropping datagram from %s: %v", from, err)
			continue
		}
		if !reading.HasValue() {
			continue
		}
		r.Ingest(reading)
	}
}
