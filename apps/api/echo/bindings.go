package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type cleaner interface {
	Clean()
}

// bindAndValidate binds the request into `data`, cleans it when it knows how, then validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	if c, ok := data.(cleaner); ok {
		c.Clean()
	}
	return validate.Struct(data)
}

// baseApi holds what every handler group needs to resolve the acting user.
type baseApi struct {
	tokens   *TokenIssuer
	users    *user.Service
	validate *validator.Validate
}

func newBaseApi(deps *Deps, tokens *TokenIssuer) baseApi {
	return baseApi{tokens: tokens, users: deps.UserSvc, validate: deps.Validate}
}

func (api baseApi) ctxUser(ctx echo.Context) (user.User, error) {
	return api.tokens.contextUser(ctx, api.users)
}

type SuccessResponse struct {
	Success string `json:"success"`
}
