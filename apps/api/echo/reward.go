package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/reward"
	"github.com/educonnectpro/educonnect/core/user"
)

type rewardApi struct {
	baseApi
	svc *reward.Service
}

func registerRewardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := rewardApi{baseApi: newBaseApi(deps, tokens), svc: deps.RewardSvc}

	rg := g.Group("/rewards")
	rg.GET("/tiers", api.tiers)

	student := tokens.roleMiddleware(user.RoleStudent)
	rg.POST("/check-in", api.checkIn, jwt, student)
	rg.GET("/status", api.status, jwt, student)
}

type CheckInResponse struct {
	Status  reward.Status `json:"status"`
	Counted bool          `json:"counted"`
}

func (api *rewardApi) tiers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Tiers())
}

func (api *rewardApi) checkIn(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	st, counted, err := api.svc.CheckIn(ctx.Request().Context(), usr.ID, time.Now())
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusOK, CheckInResponse{Status: st, Counted: counted})
}

func (api *rewardApi) status(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	st, err := api.svc.StatusFor(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting reward status")
	}
	return ctx.JSON(http.StatusOK, st)
}
