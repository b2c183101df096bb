package echoapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/ghost/osmosis"
)

const mimeTextMarkdown = "text/markdown; charset=UTF-8"

type ghostApi struct {
	svc ghost.Service
}

func registerGhostAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *ghostApi) {
	gg := g.Group("/ghost", jwt, staffMiddleware())
	gg.GET("/engines", api.engines)
	gg.GET("/entanglement", api.entanglement)
	gg.GET("/osmosis", api.osmosis)
	gg.GET("/lattice", api.lattice)
	gg.GET("/vector", api.vectors)
	gg.GET("/ion", api.ionization)
	gg.GET("/warp", api.warp)
	gg.GET("/:engine/report", api.report)
}

func (api *ghostApi) engines(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ghost.Engines)
}

func (api *ghostApi) entanglement(ctx echo.Context) error {
	res, err := api.svc.Entanglement(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "running entanglement")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) osmosis(ctx echo.Context) error {
	var gridSize int
	if val := ctx.QueryParam("grid"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > osmosis.MaxGridSize {
			return core.NewValidationError(nil, core.FieldError{
				Field: "grid",
				Error: fmt.Sprintf("grid must be an integer between 1 and %d", osmosis.MaxGridSize),
			})
		}
		gridSize = n
	}

	res, err := api.svc.Osmosis(requestContext(ctx), gridSize)
	if err != nil {
		return errors.Wrap(err, "running osmosis")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) lattice(ctx echo.Context) error {
	res, err := api.svc.Lattice(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "running lattice")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) vectors(ctx echo.Context) error {
	res, err := api.svc.Vectors(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "running vectors")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) ionization(ctx echo.Context) error {
	var temperature *float64
	if val := ctx.QueryParam("temperature"); val != "" {
		t, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "temperature", Error: "temperature must be a positive number"})
		}
		temperature = &t
	}

	res, err := api.svc.Ionization(requestContext(ctx), temperature)
	if err != nil {
		return errors.Wrap(err, "running ionization")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) warp(ctx echo.Context) error {
	res, err := api.svc.Warp(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "running warp")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *ghostApi) report(ctx echo.Context) error {
	report, err := api.svc.Report(requestContext(ctx), ctx.Param("engine"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.Blob(http.StatusOK, mimeTextMarkdown, []byte(report))
}
