package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
)

type activityApi struct {
	svc      activity.Service
	students activity.StudentGetter
	validate *validator.Validate
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *activityApi) {
	// per-route middleware: a group without prefix would catch every unknown /v1 route
	mw := []echo.MiddlewareFunc{jwt, staffMiddleware()}

	g.POST("/behavior", api.logBehavior, mw...)
	g.GET("/behavior", api.queryBehavior, mw...)
	g.DELETE("/behavior", api.destroyBehavior, mw...)

	g.POST("/homework", api.logHomework, mw...)
	g.GET("/homework", api.queryHomework, mw...)
	g.DELETE("/homework", api.destroyHomework, mw...)

	g.POST("/quizzes", api.logQuiz, mw...)
	g.GET("/quizzes", api.queryQuizzes, mw...)
	g.DELETE("/quizzes", api.destroyQuizzes, mw...)
}

func bindActivityQuery(ctx echo.Context) (*activity.QueryFilter, []core.DBOrdering, error) {
	filter := new(activity.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, nil, err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return filter, ordering.Orderings, nil
}

func bindIDs(ctx echo.Context) ([]string, error) {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return nil, errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	return query.IDs, nil
}

// Behavior

func (api *activityApi) logBehavior(ctx echo.Context) error {
	var data activity.NewBehaviorEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBehaviorEvent")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.students); err != nil {
		return err
	}

	e, err := api.svc.LogBehavior(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "logging behavior")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *activityApi) queryBehavior(ctx echo.Context) error {
	filter, ordering, err := bindActivityQuery(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, []activity.BehaviorEvent{})
	}

	events, err := api.svc.QueryBehaviorEvents(requestContext(ctx), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying behavior events")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *activityApi) destroyBehavior(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteBehaviorEvents(requestContext(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting behavior events")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Homework

func (api *activityApi) logHomework(ctx echo.Context) error {
	var data activity.NewHomeworkLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomeworkLog")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.students); err != nil {
		return err
	}

	l, err := api.svc.LogHomework(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "logging homework")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *activityApi) queryHomework(ctx echo.Context) error {
	filter, ordering, err := bindActivityQuery(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, []activity.HomeworkLog{})
	}

	logs, err := api.svc.QueryHomeworkLogs(requestContext(ctx), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying homework logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *activityApi) destroyHomework(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteHomeworkLogs(requestContext(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting homework logs")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Quizzes

func (api *activityApi) logQuiz(ctx echo.Context) error {
	var data activity.NewQuizLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuizLog")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.students); err != nil {
		return err
	}

	l, err := api.svc.LogQuiz(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "logging quiz")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *activityApi) queryQuizzes(ctx echo.Context) error {
	filter, ordering, err := bindActivityQuery(ctx)
	if err != nil {
		return ctx.JSON(http.StatusOK, []activity.QuizLog{})
	}

	logs, err := api.svc.QueryQuizLogs(requestContext(ctx), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying quiz logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *activityApi) destroyQuizzes(ctx echo.Context) error {
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteQuizLogs(requestContext(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting quiz logs")
	}
	return ctx.NoContent(http.StatusNoContent)
}
