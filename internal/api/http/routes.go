package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/climate-series/internal/provider"
	"github.com/i474232898/climate-series/internal/series"
	"github.com/i474232898/climate-series/internal/worker"
)

var validate = validator.New()

// RegisterRoutes wires the series API into the Fiber app. Each request is
// served by its own provider so concurrent clients never supersede each other.
func RegisterRoutes(app *fiber.App, spawn worker.Spawner, routes series.Routes) {
	v1 := app.Group("/api/v1")

	v1.Get("/series", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"dataTypes": routes.Aliases(),
		})
	})

	v1.Get("/series/:dataType", func(c *fiber.Ctx) error {
		var q seriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p := provider.New(spawn, routes)
		defer p.Close()

		result, err := p.Fetch(c.UserContext(), q.DataType, q.filter())
		if err != nil {
			return seriesError(c, err)
		}
		return c.JSON(result)
	})
}

// seriesQuery holds the path and query parameters of a series request.
type seriesQuery struct {
	DataType string `validate:"required"`
	From     *int   `validate:"omitempty,min=0,max=9999"`
	To       *int   `validate:"omitempty,min=0,max=9999"`
}

func (q *seriesQuery) bind(c *fiber.Ctx) error {
	q.DataType = c.Params("dataType")

	from, err := parseYear(c.Query("from"))
	if err != nil {
		return errors.New("from must be a year")
	}
	to, err := parseYear(c.Query("to"))
	if err != nil {
		return errors.New("to must be a year")
	}
	q.From = from
	q.To = to
	return nil
}

func (q seriesQuery) filter() series.Filter {
	return series.Filter{From: q.From, To: q.To}
}

func parseYear(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// seriesError renders pipeline errors with their code and details.
func seriesError(c *fiber.Ctx, err error) error {
	var serr *series.Error
	if errors.As(err, &serr) {
		return c.Status(statusFor(serr.Kind)).JSON(fiber.Map{
			"error":   true,
			"code":    serr.Kind,
			"message": serr.Error(),
			"details": serr.Details(),
		})
	}

	var fault *worker.FaultError
	if errors.As(err, &fault) {
		return fiber.NewError(fiber.StatusInternalServerError, "data worker failed")
	}
	return err
}

func statusFor(kind series.Kind) int {
	switch kind {
	case series.KindUnknownDataType:
		return fiber.StatusNotFound
	case series.KindNetwork, series.KindParse:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
