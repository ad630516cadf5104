package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/user"
)

type feeApi struct {
	baseApi
	svc *fee.Service
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := feeApi{baseApi: newBaseApi(deps, tokens), svc: deps.FeeSvc}
	teacher := tokens.roleMiddleware(user.RoleTeacher)
	payer := tokens.roleMiddleware(user.RoleStudent, user.RoleParent)

	fg := g.Group("/fees", jwt)
	fg.POST("", api.create, teacher)
	fg.POST("/:id/pay", api.pay, payer)
	fg.GET("/:id/payment", api.paymentState, payer)

	g.GET("/classes/:id/fees", api.classFees, jwt, teacher)
	g.GET("/students/:id/fees", api.studentFees, jwt)
}

func (api *feeApi) create(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data fee.NewFee
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	f, err := api.svc.CreateFee(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) classFees(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	fees, err := api.svc.ClassFees(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) studentFees(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	fees, err := api.svc.StudentFees(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student fees")
	}
	if fees == nil {
		fees = []fee.Fee{}
	}
	return ctx.JSON(http.StatusOK, fees)
}

// pay blocks for the simulated processing delay.
func (api *feeApi) pay(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.Pay(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "paying fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) paymentState(ctx echo.Context) error {
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
