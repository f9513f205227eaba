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

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/center"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/report"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	"github.com/mutabaa-app/mutabaa/core/upload"
	"github.com/mutabaa-app/mutabaa/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger

		UserSvc    *user.Service
		StudentSvc *student.Service
		SessionSvc *session.Service
		RecordSvc  *record.Service
		CenterSvc  *center.Service
		UploadSvc  *upload.Service
		ReportSvc  *report.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, func() { s.shutdown <- syscall.SIGTERM })
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc, s.opts.RecordSvc, s.opts.SessionSvc)
	registerSessionAPI(v1, jwt, s.opts.SessionSvc)
	registerRecordAPI(v1, jwt, s.opts.RecordSvc, s.opts.UploadSvc)
	registerCenterAPI(v1, jwt, s.opts.CenterSvc)
	registerUploadAPI(v1, jwt, s.opts.UploadSvc)
	registerReportAPI(v1, jwt, s.opts.ReportSvc, s.opts.SessionSvc)
}

func (s *server) Start() {
	s.errs <- s.app.Start(s.opts.Address)
}

func (s *server) Errors() <-chan error { return s.errs }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Mutabaa API!")
}
