package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

type (
	// Authenticator checks sign-in credentials against the identity provider.
	Authenticator interface {
		Authenticate(ctx context.Context, email, pwd string) (core.IdentityUser, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Auth           Authenticator
		UserSvc        *user.Service
		InvitationSvc  *invitation.Service
		OnboardingSvc  *onboarding.Service
		EventSvc       *event.Service
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authConfig
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthConfig(deps.Conf),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	api := s.app.Group("/api")
	jwt := s.auth.middleware()
	optionalJWT := s.auth.optionalMiddleware()
	limit := newIPRateLimiter(conf.Server.RateLimitPerMinute, conf.Server.RateLimitBurst).middleware

	registerAuthAPI(api, jwt, s.deps.Auth, s.deps.UserSvc, s.auth)
	registerUserAPI(api, jwt, s.deps.UserSvc)
	registerInvitationAPI(api, jwt, limit, s.deps.InvitationSvc)
	registerOnboardingAPI(api, optionalJWT, s.deps.OnboardingSvc, s.metrics)
	registerEventAPI(api, jwt, optionalJWT, limit, s.deps.EventSvc, s.deps.UserSvc)
}

func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Address)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

// Errors reports the errors that stopped the server.
func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives the OS interrupt and terminate signals, and the shutdown
// requested by a core.shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

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

// GenerateToken returns a signed token for `usr`, or for `email` alone when usr is zero.
func (s *Server) GenerateToken(usr user.User, email string) (string, error) {
	return s.auth.GenerateToken(s.auth.NewClaims(usr, email))
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
