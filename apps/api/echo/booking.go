package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/user"
)

type bookingApi struct {
	baseApi
	svc *booking.Service
}

func registerBookingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := bookingApi{baseApi: newBaseApi(deps, tokens), svc: deps.BookingSvc}
	teacher := tokens.roleMiddleware(user.RoleTeacher)
	client := tokens.roleMiddleware(user.RoleStudent, user.RoleParent)

	bg := g.Group("/bookings", jwt)
	bg.POST("", api.create, client)
	bg.GET("", api.list)
	bg.POST("/:id/pay", api.pay, client)
	bg.GET("/:id/payment", api.paymentState, client)
	bg.POST("/:id/respond", api.respond, teacher)
	bg.POST("/:id/complete", api.complete, teacher)
	bg.POST("/:id/cancel", api.cancel)
}

type RespondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (api *bookingApi) create(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data booking.NewBooking
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	b, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating booking")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *bookingApi) list(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	bookings, err := api.svc.ForUser(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying bookings")
	}
	if bookings == nil {
		bookings = []booking.HomeBooking{}
	}
	return ctx.JSON(http.StatusOK, bookings)
}

// pay blocks for the simulated processing delay.
func (api *bookingApi) pay(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	b, err := api.svc.Pay(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "paying booking")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bookingApi) paymentState(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	tx, err := api.svc.PaymentState(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payment state")
	}
	return ctx.JSON(http.StatusOK, tx)
}

func (api *bookingApi) respond(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data RespondRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	b, err := api.svc.Respond(ctx.Request().Context(), usr, ctx.Param("id"), *data.Accept)
	if err != nil {
		return errors.Wrap(err, "responding to booking")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bookingApi) complete(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	b, err := api.svc.Complete(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing booking")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *bookingApi) cancel(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	b, err := api.svc.Cancel(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling booking")
	}
	return ctx.JSON(http.StatusOK, b)
}
