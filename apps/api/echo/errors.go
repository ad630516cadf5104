package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/contact"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errRateLimited        = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
)

// domainErrors maps domain errors to a status code. The sentinel message is sent to the client
// so wrapped details never leak. The first match wins.
var domainErrors = []struct {
	err  error
	code int
	msg  string
}{
	{core.ErrPermissionDenied, http.StatusForbidden, "permission denied"},
	{core.ErrNotFound, http.StatusNotFound, "not found"},
	{user.ErrInvalidCredentials, http.StatusBadRequest, ""},
	{user.ErrAccountDeactivated, http.StatusForbidden, ""},
	{user.ErrInvalidOTP, http.StatusBadRequest, ""},
	{user.ErrInvalidGoogleToken, http.StatusBadRequest, ""},
	{user.ErrGoogleEmailUnverified, http.StatusBadRequest, ""},
	{classroom.ErrInvalidClassCode, http.StatusBadRequest, ""},
	{classroom.ErrAlreadyEnrolled, http.StatusConflict, ""},
	{booking.ErrTeacherUnavailable, http.StatusBadRequest, ""},
	{booking.ErrInvalidTransition, http.StatusConflict, ""},
	{fee.ErrNotPayable, http.StatusConflict, ""},
	{payment.ErrBusy, http.StatusConflict, ""},
	{payment.ErrPaymentFailed, http.StatusConflict, ""},
	{contact.ErrNoPhone, http.StatusNotFound, ""},
	{ai.ErrGeneration, http.StatusBadGateway, ""},
}

func domainError(err error) (int, string, bool) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			msg := de.msg
			if msg == "" {
				msg = de.err.Error()
			}
			return de.code, msg, true
		}
	}
	return 0, "", false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	tokens *TokenIssuer,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var vErr *core.ValidationError
		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, fErr := range origErr {
				fldErrs[fErr.Field()] = fErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		default:
			if errors.As(err, &vErr) {
				if vErr.Fields != nil {
					fldErrs := make(map[string]string, len(vErr.Fields))
					for _, fErr := range vErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = vErr.Error()
				}
				code = http.StatusBadRequest
				break
			}
			if c, msg, ok := domainError(err); ok {
				code = c
				message = msg
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := tokens.contextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Email = claims.Email
				usr.Role = claims.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
