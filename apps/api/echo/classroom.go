package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/seatplan/core/classroom"
)

type classroomApi struct {
	svc      classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *classroomApi) {
	g.GET("/layout", api.layout, jwt, staffMiddleware())

	sg := g.Group("/students", jwt, staffMiddleware())
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.DELETE("", api.destroyStudents)
	sdg := sg.Group("/:id", objectMiddleware(api.getStudent))
	sdg.GET("", api.retrieveStudent)
	sdg.PUT("", api.updateStudent)
	sdg.PUT("/position", api.moveStudent)
	sdg.DELETE("", api.destroyStudent)

	gg := g.Group("/groups", jwt, staffMiddleware())
	gg.POST("", api.createGroup)
	gg.GET("", api.queryGroups)
	ggd := gg.Group("/:id", objectMiddleware(api.getGroup))
	ggd.GET("", api.retrieveGroup)
	ggd.PUT("", api.updateGroup)
	ggd.DELETE("", api.destroyGroup)

	fg := g.Group("/furniture", jwt, staffMiddleware())
	fg.POST("", api.createFurniture)
	fg.GET("", api.queryFurniture)
	fg.DELETE("", api.destroyFurniture)
	fgd := fg.Group("/:id", objectMiddleware(api.getFurniture))
	fgd.GET("", api.retrieveFurniture)
	fgd.PUT("", api.updateFurniture)
	fgd.PUT("/position", api.moveFurniture)
	fgd.DELETE("", api.destroyOneFurniture)
}

func (api *classroomApi) getStudent(ctx echo.Context, id string) (classroom.Student, error) {
	return api.svc.GetStudent(requestContext(ctx), id)
}

func (api *classroomApi) getGroup(ctx echo.Context, id string) (classroom.StudentGroup, error) {
	return api.svc.GetGroup(requestContext(ctx), id)
}

func (api *classroomApi) getFurniture(ctx echo.Context, id string) (classroom.Furniture, error) {
	return api.svc.GetFurniture(requestContext(ctx), id)
}

func (api *classroomApi) layout(ctx echo.Context) error {
	layout, err := api.svc.Layout(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "loading layout")
	}
	return ctx.JSON(http.StatusOK, layout)
}

// Students

func (api *classroomApi) createStudent(ctx echo.Context) error {
	var data classroom.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.CreateStudent(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *classroomApi) queryStudents(ctx echo.Context) error {
	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.QueryStudents(requestContext(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) retrieveStudent(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextObject[classroom.Student](ctx))
}

func (api *classroomApi) updateStudent(ctx echo.Context) error {
	var data classroom.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.UpdateStudent(requestContext(ctx), contextObject[classroom.Student](ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *classroomApi) moveStudent(ctx echo.Context) error {
	var pos classroom.Position
	if err := ctx.Bind(&pos); err != nil {
		return errors.Wrap(err, "binding to Position")
	}
	if err := pos.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.MoveStudent(requestContext(ctx), contextObject[classroom.Student](ctx), pos)
	if err != nil {
		return errors.Wrap(err, "moving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *classroomApi) destroyStudent(ctx echo.Context) error {
	if err := api.svc.DeleteStudents(requestContext(ctx), contextObject[classroom.Student](ctx).ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) destroyStudents(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.DeleteStudents(requestContext(ctx), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Groups

func (api *classroomApi) createGroup(ctx echo.Context) error {
	var data classroom.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(requestContext(ctx), api.validate, api.svc); err != nil {
		return err
	}

	g, err := api.svc.CreateGroup(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *classroomApi) queryGroups(ctx echo.Context) error {
	groups, err := api.svc.QueryGroups(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *classroomApi) retrieveGroup(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextObject[classroom.StudentGroup](ctx))
}

func (api *classroomApi) updateGroup(ctx echo.Context) error {
	grp := contextObject[classroom.StudentGroup](ctx)

	var data classroom.UpdateGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err := data.Validate(requestContext(ctx), grp, api.validate, api.svc); err != nil {
		return err
	}

	grp, err := api.svc.UpdateGroup(requestContext(ctx), grp.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *classroomApi) destroyGroup(ctx echo.Context) error {
	if err := api.svc.DeleteGroup(requestContext(ctx), contextObject[classroom.StudentGroup](ctx).ID); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Furniture

func (api *classroomApi) createFurniture(ctx echo.Context) error {
	var data classroom.NewFurniture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFurniture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.CreateFurniture(requestContext(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating furniture")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *classroomApi) queryFurniture(ctx echo.Context) error {
	items, err := api.svc.QueryFurniture(requestContext(ctx))
	if err != nil {
		return errors.Wrap(err, "querying furniture")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *classroomApi) retrieveFurniture(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, contextObject[classroom.Furniture](ctx))
}

func (api *classroomApi) updateFurniture(ctx echo.Context) error {
	var data classroom.UpdateFurniture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFurniture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.UpdateFurniture(requestContext(ctx), contextObject[classroom.Furniture](ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating furniture")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *classroomApi) moveFurniture(ctx echo.Context) error {
	var pos classroom.Position
	if err := ctx.Bind(&pos); err != nil {
		return errors.Wrap(err, "binding to Position")
	}
	if err := pos.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.MoveFurniture(requestContext(ctx), contextObject[classroom.Furniture](ctx), pos)
	if err != nil {
		return errors.Wrap(err, "moving furniture")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *classroomApi) destroyOneFurniture(ctx echo.Context) error {
	if err := api.svc.DeleteFurniture(requestContext(ctx), contextObject[classroom.Furniture](ctx).ID); err != nil {
		return errors.Wrap(err, "deleting furniture")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) destroyFurniture(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.DeleteFurniture(requestContext(ctx), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting furniture")
	}
	return ctx.NoContent(http.StatusNoContent)
}
