package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/db"
	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/serve/httperror"
	"github.com/hatchpay/offramp-backend/internal/serve/httphandler"
	"github.com/hatchpay/offramp-backend/internal/serve/middleware"
)

const ServiceID = "hatchpay-offramp-backend"

type HTTPServerInterface interface {
	Run(ctx context.Context, conf Config) error
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	CrashTrackerClient crashtracker.CrashTrackerClient
	DatabaseDSN        string
	DBConnectionPool   db.DBConnectionPool
	Models             *data.Models
	Engine             httphandler.VerificationEngineInterface
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
// A pre-built DBConnectionPool and Models are reused when the caller already wired them.
func (opts *ServeOptions) SetupDependencies() error {
	if opts.DBConnectionPool == nil {
		dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(opts.DatabaseDSN, opts.MonitorService)
		if err != nil {
			return fmt.Errorf("connecting to the database: %w", err)
		}
		opts.DBConnectionPool = dbConnectionPool
	}

	if opts.Models == nil {
		models, err := data.NewModels(opts.DBConnectionPool)
		if err != nil {
			return fmt.Errorf("creating models: %w", err)
		}
		opts.Models = models
	}

	httperror.SetDefaultReportErrorFunc(func(ctx context.Context, err error, msg string) {
		opts.CrashTrackerClient.LogAndReportErrors(ctx, err, msg)
	})

	return nil
}

// Config holds what the HTTP server needs to run and shut down.
type Config struct {
	ListenAddr        string
	Handler           http.Handler
	OnStarting        func()
	OnStopping        func()
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type HTTPServer struct{}

// Run blocks until ctx is cancelled, then drains in-flight requests within ShutdownTimeout.
func (h *HTTPServer) Run(ctx context.Context, conf Config) error {
	if conf.ReadHeaderTimeout == 0 {
		conf.ReadHeaderTimeout = 5 * time.Second
	}
	if conf.ShutdownTimeout == 0 {
		conf.ShutdownTimeout = 10 * time.Second
	}

	srv := &http.Server{
		Addr:              conf.ListenAddr,
		Handler:           conf.Handler,
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if conf.OnStarting != nil {
			conf.OnStarting()
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if conf.OnStopping != nil {
		conf.OnStopping()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	return <-errCh
}

// make sure *HTTPServer implements HTTPServerInterface:
var _ HTTPServerInterface = (*HTTPServer)(nil)

// Serve starts the API server and blocks until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions, httpServer HTTPServerInterface) error {
	if err := opts.SetupDependencies(); err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := Config{
		ListenAddr: listenAddr,
		Handler:    handleHTTP(opts),
		OnStarting: func() {
			log.Infof("Starting HatchPay Off-Ramp Backend Server (Version: %s) on port %d", opts.Version, opts.Port)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			if err := opts.DBConnectionPool.Close(); err != nil {
				log.Errorf("error closing database connection: %v", err)
			}
		},
	}

	return httpServer.Run(ctx, serverConfig)
}

func handleHTTP(opts ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(opts.MonitorService))
	mux.Use(httprate.LimitByIP(100, 1*time.Minute))

	mux.Get("/health", httphandler.HealthHandler{
		Version:          opts.Version,
		ServiceID:        ServiceID,
		ReleaseID:        opts.GitCommit,
		DBConnectionPool: opts.DBConnectionPool,
	}.ServeHTTP)

	metricsHandler, err := opts.MonitorService.GetMetricHttpHandler()
	if err != nil {
		log.Fatalf("error getting metrics http.Handler: %s", err.Error())
	}
	mux.Handle("/metrics", metricsHandler)

	mux.Get("/stats", httphandler.StatsHandler{Engine: opts.Engine}.ServeHTTP)

	verificationHandler := httphandler.VerificationHandler{
		Engine: opts.Engine,
		Models: opts.Models,
	}
	mux.Route("/verifications", func(r chi.Router) {
		r.Route("/{reference}", func(r chi.Router) {
			r.Post("/", verificationHandler.PostVerification)
			r.Get("/", verificationHandler.GetVerification)
			r.Get("/audit", verificationHandler.GetVerificationAudit)
		})
	})

	return mux
}
