package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/services/telemetry"
)

type (
	DismissalService interface {
		GetDataInventory(ctx context.Context) (dismissal.Inventory, error)
		ValidateFieldIntegrity(ctx context.Context) (dismissal.IntegrityReport, error)
		DetectOutliers(ctx context.Context) (dismissal.OutlierReport, error)
		GetDataHealthReport(ctx context.Context) (dismissal.HealthReport, error)
		Analyze(ctx context.Context) (dismissal.Analysis, error)
	}

	MetricsService interface {
		Aggregate(ctx context.Context) (metrics.RunResult, error)
		ClearDerivedData(ctx context.Context) (metrics.ClearResult, error)
		GetCampusActivity(ctx context.Context, f metrics.Filter) ([]metrics.DashboardMetric, error)
		GetAverageWaitTime(ctx context.Context, f metrics.Filter) ([]metrics.DashboardMetric, error)
		GetSessionDuration(ctx context.Context, f metrics.Filter) ([]metrics.DashboardMetric, error)
		GetTopArrivals(ctx context.Context, f metrics.Filter) ([]metrics.Leaderboard, error)
		GetAllCampusActivity(ctx context.Context, month string) (metrics.CampusActivityRanking, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DismissalSvc   DismissalService
		MetricsSvc     MetricsService
		Telemetry      *telemetry.Recorder
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
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
	s.app.Use(s.deps.Telemetry.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Telemetry.Handler()))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	v1.GET("/me", me, jwt)

	registerDismissalAPI(v1, jwt, s.deps.DismissalSvc)
	registerMetricsAPI(v1, jwt, s.deps.MetricsSvc, s.deps.Validate)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Dismissal API!")
}
