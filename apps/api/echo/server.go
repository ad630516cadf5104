package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/reward"
	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
	metricsvc "github.com/educonnectpro/educonnect/services/metrics"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Metrics

		UserSvc    *user.Service
		RewardSvc  *reward.Service
		ClassSvc   *classroom.Service
		FeeSvc     *fee.Service
		BookingSvc *booking.Service
		SupportSvc *support.Service
		AIFlows    *ai.Flows
	}

	Server struct {
		app      *echo.Echo
		address  string
		tokens   *TokenIssuer
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps *Deps) *Server {
	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address,
		tokens:   NewTokenIssuer(deps.Conf),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps *Deps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if deps.Metrics != nil {
		s.app.Use(metricsMiddleware(deps.Metrics))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.tokens, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home(conf.AppName))
	if deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	v1 := s.app.Group("/v1")
	jwt := s.tokens.Middleware()
	limiter := newIPRateLimiter(conf.Server.AuthRateLimit)

	registerUserAPI(v1, jwt, limiter.middleware(), deps, s.tokens)
	registerRewardAPI(v1, jwt, deps, s.tokens)
	registerClassAPI(v1, jwt, deps, s.tokens)
	registerFeeAPI(v1, jwt, deps, s.tokens)
	registerBookingAPI(v1, jwt, deps, s.tokens)
	registerSupportAPI(v1, jwt, deps, s.tokens)
	registerAIAPI(v1, jwt, deps, s.tokens)
}

// Start listens on the configured address; the listen error is sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the main goroutine to stop the server gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

func home(appName string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+appName+" API!")
	}
}

func metricsMiddleware(m *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			done := m.TrackInFlight()
			defer done()

			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let the error handler write the response so the status is final
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
