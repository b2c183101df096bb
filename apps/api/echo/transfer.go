package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/transfer"
)

const formatClassroom = "classroom"

type transferApi struct {
	svc      transfer.Service
	validate *validator.Validate
}

func registerTransferAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *transferApi) {
	g.POST("/import", api.importData, jwt, staffMiddleware())
	g.GET("/export", api.exportData, jwt, staffMiddleware())
}

func (api *transferApi) importData(ctx echo.Context) error {
	data, err := transfer.DecodeClassroomData(ctx.Request().Body)
	if err != nil {
		return core.NewValidationError(err)
	}

	res, err := api.svc.Import(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "importing classroom data")
	}
	return ctx.JSON(http.StatusOK, res)
}

// exportData answers the export document, or the importable classroom document with ?format=classroom.
func (api *transferApi) exportData(ctx echo.Context) error {
	var opts transfer.ExportOptions
	if err := ctx.Bind(&opts); err != nil {
		return core.NewValidationError(err)
	}
	if err := opts.Validate(api.validate); err != nil {
		return err
	}

	exp, err := api.svc.Export(requestContext(ctx), opts)
	if err != nil {
		return errors.Wrap(err, "exporting classroom data")
	}
	if ctx.QueryParam("format") == formatClassroom {
		return ctx.JSON(http.StatusOK, exp.ClassroomData())
	}
	return ctx.JSON(http.StatusOK, exp)
}
