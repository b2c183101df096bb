package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core/mailing"
)

type mailingApi struct {
	svc      mailing.Service
	validate *validator.Validate
}

type SendResponse struct {
	Sent bool `json:"sent"`
}

func registerMailingAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *mailingApi) {
	mg := g.Group("/mailing", jwt, staffMiddleware())

	mg.POST("/schedules", api.createSchedule)
	mg.GET("/schedules", api.querySchedules)
	sg := mg.Group("/schedules/:id", objectMiddleware(api.getSchedule))
	sg.GET("", api.retrieveSchedule)
	sg.PUT("", api.updateSchedule)
	sg.DELETE("", api.destroySchedule)
	sg.POST("/send", api.sendNow)

	mg.GET("/pending", api.queryPending)
	mg.POST("/pending/process", api.processPending)
}

func (api *mailingApi) getSchedule(ctx echo.Context, id string) (mailing.EmailSchedule, error) {
	return api.svc.GetSchedule(requestContext(ctx), id)
}

func (api *mailingApi) createSchedule(ctx echo.Context) error {
	var data mailing.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.CreateSchedule(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *mailingApi) querySchedules(ctx echo.Context) error {
	schedules, err := api.svc.QuerySchedules(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *mailingApi) retrieveSchedule(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextObject[mailing.EmailSchedule](ctx))
}

func (api *mailingApi) updateSchedule(ctx echo.Context) error {
	var data mailing.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.UpdateSchedule(requestContext(ctx), contextObject[mailing.EmailSchedule](ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *mailingApi) destroySchedule(ctx echo.Context) error {
	if err := api.svc.DeleteSchedule(requestContext(ctx), contextObject[mailing.EmailSchedule](ctx).ID); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// sendNow answers 202 when the report was queued for a retry instead of sent.
func (api *mailingApi) sendNow(ctx echo.Context) error {
	sent, err := api.svc.SendNow(requestContext(ctx), contextObject[mailing.EmailSchedule](ctx))
	if err != nil {
		return errors.Wrap(err, "sending report")
	}
	code := http.StatusOK
	if !sent {
		code = http.StatusAccepted
	}
	return ctx.JSON(code, SendResponse{Sent: sent})
}

func (api *mailingApi) queryPending(ctx echo.Context) error {
	pending, err := api.svc.QueryPending(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying pending emails")
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (api *mailingApi) processPending(ctx echo.Context) error {
	res, err := api.svc.ProcessPending(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "processing pending emails")
	}
	return ctx.JSON(http.StatusOK, res)
}
