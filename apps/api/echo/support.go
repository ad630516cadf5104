package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
)

type supportApi struct {
	baseApi
	svc *support.Service
}

func registerSupportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := supportApi{baseApi: newBaseApi(deps, tokens), svc: deps.SupportSvc}
	admin := tokens.roleMiddleware(user.RoleAdmin)

	sg := g.Group("/support/tickets", jwt)
	sg.POST("", api.open)
	sg.GET("", api.mine)
	sg.GET("/all", api.all, admin)
	sg.PUT("/:id", api.update, admin)
}

func (api *supportApi) open(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data support.NewTicket
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	t, err := api.svc.Open(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "opening ticket")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *supportApi) mine(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	tickets, err := api.svc.Mine(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	if tickets == nil {
		tickets = []support.Ticket{}
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *supportApi) all(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var filter support.Filter
	if err = ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []support.Ticket{})
	}
	tickets, err := api.svc.All(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	if tickets == nil {
		tickets = []support.Ticket{}
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *supportApi) update(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data support.UpdateTicket
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	t, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating ticket")
	}
	return ctx.JSON(http.StatusOK, t)
}
