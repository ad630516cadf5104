package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/contact"
	"github.com/educonnectpro/educonnect/core/user"
)

type userApi struct {
	baseApi
	svc     *user.Service
	appName string
	logger  core.Logger
}

func registerUserAPI(g *echo.Group, jwt, limit echo.MiddlewareFunc, deps *Deps, tokens *TokenIssuer) {
	api := userApi{
		baseApi: newBaseApi(deps, tokens),
		svc:     deps.UserSvc,
		appName: deps.Conf.AppName,
		logger:  deps.Logger,
	}
	admin := tokens.roleMiddleware(user.RoleAdmin)

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/google", api.google)
	ag.POST("/otp/request", api.requestOTP, limit)
	ag.POST("/otp/verify", api.verifyOTP, limit)
	ag.POST("/password-reset", api.resetPassword, limit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limit)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	ug := g.Group("/users", jwt)
	ug.GET("/me", api.me)
	ug.PUT("/me", api.updateMe)
	ug.GET("/me/children", api.children)
	ug.POST("/me/children", api.linkChild)
	ug.GET("/roles", api.queryRoles)
	ug.GET("", api.query, admin)
	ug.PUT("/:id/active", api.setActive, admin)
	ug.PUT("/:id/verify", api.verifyTeacher, admin)
	ug.DELETE("/:id", api.destroy, admin)

	tg := g.Group("/teachers")
	tg.GET("", api.teachers)
	tg.GET("/:id", api.teacher)
	tg.GET("/:id/contact", api.contactTeacher, jwt)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}

	OTPRequest struct {
		Phone string `json:"phone" validate:"required,phone"`
	}

	OTPVerifyRequest struct {
		Phone string    `json:"phone" validate:"required,phone"`
		Code  string    `json:"code" validate:"required,numeric,len=6"`
		Role  user.Role `json:"role" validate:"omitempty,selfrole"`
		Name  string    `json:"name" validate:"max=120"`
	}

	GoogleSignInRequest struct {
		IDToken string    `json:"id_token" validate:"required"`
		Role    user.Role `json:"role" validate:"omitempty,selfrole"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	LinkChildRequest struct {
		StudentEmail string `json:"student_email" validate:"required,email"`
	}

	SetActiveRequest struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}

	VerifyTeacherRequest struct {
		Verified *bool `json:"verified" validate:"required"`
	}

	ContactResponse struct {
		URL string `json:"url"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}

func (or *OTPRequest) Clean() {
	or.Phone = core.CleanPhone(or.Phone)
}

func (vr *OTPVerifyRequest) Clean() {
	vr.Phone = core.CleanPhone(vr.Phone)
	vr.Code = core.CleanString(vr.Code)
}

func (pr *PasswordResetRequest) Clean() {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
}

func (lr *LinkChildRequest) Clean() {
	lr.StudentEmail = core.CleanString(lr.StudentEmail, true /* lower */)
}

// Handlers

func (api *userApi) signedIn(ctx echo.Context, code int, usr user.User) error {
	token, err := api.tokens.GenerateToken(api.tokens.UserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{Token: token, User: &usr})
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return api.signedIn(ctx, http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.signedIn(ctx, http.StatusOK, usr)
}

func (api *userApi) google(ctx echo.Context) error {
	var data GoogleSignInRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	usr, err := api.svc.SignInWithGoogle(ctx.Request().Context(), data.IDToken, data.Role)
	if err != nil {
		return errors.Wrap(err, "signing in with google")
	}
	return api.signedIn(ctx, http.StatusOK, usr)
}

func (api *userApi) requestOTP(ctx echo.Context) error {
	var data OTPRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if err := api.svc.RequestOTP(ctx.Request().Context(), data.Phone); err != nil {
		return errors.Wrap(err, "requesting otp")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "A verification code has been sent to your phone."})
}

func (api *userApi) verifyOTP(ctx echo.Context) error {
	var data OTPVerifyRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	usr, err := api.svc.VerifyOTP(ctx.Request().Context(), data.Phone, data.Code, data.Role, data.Name)
	if err != nil {
		return errors.Wrap(err, "verifying otp")
	}
	return api.signedIn(ctx, http.StatusOK, usr)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && !errors.Is(err, core.ErrNotFound) && !errors.Is(err, user.ErrAccountDeactivated) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.tokens.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if usr, err = api.svc.Update(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) children(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	children, err := api.svc.Children(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *userApi) linkChild(ctx echo.Context) error {
	usr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	var data LinkChildRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if usr, err = api.svc.LinkChild(ctx.Request().Context(), usr, data.StudentEmail); err != nil {
		return errors.Wrap(err, "linking child")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) setActive(ctx echo.Context) error {
	var data SetActiveRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	// admins cannot lock themselves out
	if ctx.Param("id") == ctxUsr.ID {
		return errHttpForbidden
	}
	usr, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) verifyTeacher(ctx echo.Context) error {
	var data VerifyTeacherRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	usr, err := api.svc.VerifyTeacher(ctx.Request().Context(), ctx.Param("id"), *data.Verified)
	if err != nil {
		return errors.Wrap(err, "verifying teacher")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := api.ctxUser(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if id == ctxUsr.ID {
		return errHttpForbidden
	}
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) teachers(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.svc.Teachers(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []user.User{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *userApi) teacher(ctx echo.Context) error {
	teacher, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	return ctx.JSON(http.StatusOK, teacher)
}

func (api *userApi) contactTeacher(ctx echo.Context) error {
	if _, err := api.ctxUser(ctx); err != nil {
		return err
	}
	teacher, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}

	msg := contact.DefaultMessage(api.appName, teacher.Name, core.CleanString(ctx.QueryParam("subject")))
	link, err := contact.WhatsAppLink(teacher.Phone, msg)
	if err != nil {
		return errors.Wrap(err, "building whatsapp link")
	}
	return ctx.JSON(http.StatusOK, ContactResponse{URL: link})
}
