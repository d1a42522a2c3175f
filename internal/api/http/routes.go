package httpapi

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/tidal-acquisition/internal/locator"
	"github.com/i474232898/tidal-acquisition/internal/weather"
)

var validate = validator.New()

// Readings is the part of weather.Service the API serves from.
type Readings interface {
	Current(ctx context.Context, kind weather.Kind) []weather.Record
}

// StationState reports the station locator's state.
type StationState interface {
	State() locator.State
	Known() string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. station may be
// nil when discovery is not wired.
func RegisterRoutes(app *fiber.App, service Readings, station StationState) {
	v1 := app.Group("/api/v1")

	v1.Get("/readings/:kind", func(c *fiber.Ctx) error {
		var req readingsRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		kind, err := weather.ParseKind(req.Kind)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records := service.Current(c.UserContext(), kind)
		if records == nil {
			records = []weather.Record{}
		}

		return c.JSON(fiber.Map{
			"kind":    kind,
			"count":   len(records),
			"records": records,
		})
	})

	v1.Get("/station", func(c *fiber.Ctx) error {
		if station == nil {
			return c.JSON(fiber.Map{"state": locator.StateUnconfigured})
		}
		return c.JSON(fiber.Map{
			"state":   station.State(),
			"address": station.Known(),
		})
	})
}

// readingsRequest holds the path parameters of the readings endpoint.
type readingsRequest struct {
	Kind string `validate:"required,lowercase,max=16"`
}

func (r *readingsRequest) bind(c *fiber.Ctx) error {
	r.Kind = c.Params("kind")
	return validate.Struct(r)
}
