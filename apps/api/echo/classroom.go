package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/user"
)

type classApi struct {
	baseApi
	svc *classroom.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := classApi{baseApi: newBaseApi(deps, tokens), svc: deps.ClassSvc}
	teacher := tokens.roleMiddleware(user.RoleTeacher)
	student := tokens.roleMiddleware(user.RoleStudent)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, teacher)
	cg.GET("", api.list)
	cg.POST("/enroll", api.enroll, student)
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.destroy, teacher)
	cg.GET("/:id/roster", api.roster)
	cg.POST("/:id/materials", api.addMaterial, teacher)
	cg.GET("/:id/materials", api.materials)
	cg.POST("/:id/performances", api.recordPerformance, teacher)

	ag := g.Group("/announcements", jwt)
	ag.POST("", api.postAnnouncement, tokens.roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	ag.GET("", api.announcements)
	ag.GET("/marquee", api.marquee)

	g.GET("/students/:id/performances", api.studentPerformances, jwt)
}

type EnrollRequest struct {
	Code string `json:"code" validate:"required,notblank"`
}

func (api *classApi) create(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClass
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) list(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	classes, err := api.svc.Classes(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []classroom.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	cls, err := api.svc.GetClass(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) enroll(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data EnrollRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	cls, err := api.svc.Enroll(ctx.Request().Context(), usr, data.Code)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) roster(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.Roster(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addMaterial(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewMaterial
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	mat, err := api.svc.AddMaterial(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *classApi) materials(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	typ := classroom.MaterialType(ctx.QueryParam("type"))
	if typ != "" && !typ.Valid() {
		return ctx.JSON(http.StatusOK, []classroom.StudyMaterial{})
	}
	mats, err := api.svc.Materials(ctx.Request().Context(), usr, ctx.Param("id"), typ)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if mats == nil {
		mats = []classroom.StudyMaterial{}
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api *classApi) recordPerformance(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewPerformance
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	perf, err := api.svc.RecordPerformance(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording performance")
	}
	return ctx.JSON(http.StatusCreated, perf)
}

func (api *classApi) studentPerformances(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	perfs, err := api.svc.StudentPerformances(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying performances")
	}
	if perfs == nil {
		perfs = []classroom.Performance{}
	}
	return ctx.JSON(http.StatusOK, perfs)
}

func (api *classApi) postAnnouncement(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewAnnouncement
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	ann, err := api.svc.PostAnnouncement(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "posting announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *classApi) announcements(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	anns, err := api.svc.Announcements(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []classroom.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *classApi) marquee(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	anns, err := api.svc.Marquee(ctx.Request().Context(), usr, time.Now())
	if err != nil {
		return errors.Wrap(err, "querying marquee")
	}
	if anns == nil {
		anns = []classroom.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}
