package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/mailing"
	"github.com/trezcool/seatplan/core/transfer"
	"github.com/trezcool/seatplan/core/user"
	metricsvc "github.com/trezcool/seatplan/services/metrics"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        *metricsvc.Collector // optional
		Shutdown       chan error           // optional

		UserSvc      user.Service
		ClassroomSvc classroom.Service
		ActivitySvc  activity.Service
		MailingSvc   mailing.Service
		TransferSvc  transfer.Service
		GhostSvc     ghost.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	tokens := newTokenIssuer(conf)
	jwt := tokens.middleware()

	registerUserAPI(v1, jwt, &userApi{svc: s.opts.UserSvc, validate: s.opts.Validate, logger: s.opts.Logger, tokens: tokens})
	registerClassroomAPI(v1, jwt, &classroomApi{svc: s.opts.ClassroomSvc, validate: s.opts.Validate})
	registerActivityAPI(v1, jwt, &activityApi{svc: s.opts.ActivitySvc, students: s.opts.ClassroomSvc, validate: s.opts.Validate})
	registerMailingAPI(v1, jwt, &mailingApi{svc: s.opts.MailingSvc, validate: s.opts.Validate})
	registerTransferAPI(v1, jwt, &transferApi{svc: s.opts.TransferSvc, validate: s.opts.Validate})
	registerGhostAPI(v1, jwt, &ghostApi{svc: s.opts.GhostSvc})
}

// Start blocks until the server stops; http.ErrServerClosed is not an error.
func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	if s.opts.Shutdown == nil {
		return
	}
	select {
	case s.opts.Shutdown <- core.NewShutdownError("integrity issue"):
	default:
	}
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
