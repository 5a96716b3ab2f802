package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/storage"
	"github.com/marcuslam20/thingsboard-server-sub000/internal/widgets"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/interfaces"
)

// Server is the dashboard HTTP server: dashboard persistence, widget
// data and rendering, telemetry ingest, command forwarding and the
// telemetry websocket.
type Server struct {
	config        *Config
	logger        *logrus.Logger
	router        *mux.Router
	httpServer    *http.Server
	metricsServer *http.Server
	metrics       *Metrics

	store     storage.DashboardBackend
	telemetry storage.TelemetryBackend
	registry  *registry.Registry
	invoker   *widgets.CommandInvoker
	hub       *TelemetryHub
}

// Dependencies carries the wired components the server serves.
type Dependencies struct {
	Store     storage.DashboardBackend
	Telemetry storage.TelemetryBackend
	Registry  *registry.Registry
	Sender    interfaces.CommandSender
}

// NewServer assembles the server around its dependencies.
func NewServer(config *Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	promRegistry := prometheus.NewRegistry()
	s := &Server{
		config:    config,
		logger:    logger,
		router:    mux.NewRouter(),
		metrics:   NewMetrics(promRegistry),
		store:     deps.Store,
		telemetry: deps.Telemetry,
		registry:  deps.Registry,
	}
	if deps.Sender != nil {
		s.invoker = widgets.NewCommandInvoker(deps.Sender, logger)
	}
	s.hub = NewTelemetryHub(deps.Telemetry, s.metrics, logger)

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	if config.EnableMetrics {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{
			Addr:    config.MetricsAddress(),
			Handler: metricsMux,
		}
	}
	return s, nil
}

// Start runs the server until it fails or is stopped. The metrics
// listener runs on its own port.
func (s *Server) Start(ctx context.Context) error {
	if s.metricsServer != nil {
		go func() {
			s.logger.WithField("address", s.metricsServer.Addr).Info("Starting metrics server")
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.WithError(err).Error("Metrics server failed")
			}
		}()
	}
	s.logger.WithField("address", s.httpServer.Addr).Info("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Stop shuts both listeners down gracefully and closes every websocket.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.hub.Close()

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Error("Metrics server shutdown failed")
		}
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Hub exposes the telemetry hub so ingest paths outside HTTP can push
// live updates.
func (s *Server) Hub() *TelemetryHub {
	return s.hub
}

const apiPrefix = "/api/v1"

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	api := s.router.PathPrefix(apiPrefix).Subrouter()

	api.HandleFunc("/dashboards", s.handleListDashboards).Methods(http.MethodGet)
	api.HandleFunc("/dashboards", s.handleCreateDashboard).Methods(http.MethodPost)
	api.HandleFunc("/dashboards/{id}", s.handleGetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboards/{id}", s.handleSaveDashboard).Methods(http.MethodPut)
	api.HandleFunc("/dashboards/{id}", s.handleDeleteDashboard).Methods(http.MethodDelete)

	api.HandleFunc("/widget-types", s.handleListWidgetTypes).Methods(http.MethodGet)
	api.HandleFunc("/dashboards/{id}/widgets/{widgetId}/data", s.handleWidgetData).Methods(http.MethodGet)

	api.HandleFunc("/devices/{deviceId}/timeseries", s.handleReadTimeseries).Methods(http.MethodGet)
	api.HandleFunc("/devices/{deviceId}/timeseries", s.handleWriteTimeseries).Methods(http.MethodPost)
	api.HandleFunc("/devices/{deviceId}/attributes/{scope}", s.handleReadAttributes).Methods(http.MethodGet)
	api.HandleFunc("/devices/{deviceId}/attributes/{scope}", s.handleWriteAttributes).Methods(http.MethodPost)
	api.HandleFunc("/devices/{deviceId}/rpc", s.handleDeviceRPC).Methods(http.MethodPost)

	s.router.HandleFunc("/api/ws/plugins/telemetry", s.hub.HandleConnection).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.metricsMiddleware)
	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
}
