package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
	"github.com/eugenenazirov/node-allocator/internal/api"
	"github.com/eugenenazirov/node-allocator/internal/config"
	"github.com/eugenenazirov/node-allocator/internal/metrics"
	"github.com/eugenenazirov/node-allocator/internal/output"
	"github.com/eugenenazirov/node-allocator/internal/records"
	"github.com/eugenenazirov/node-allocator/internal/storage"
)

// ErrMissingInput is returned by RunBatch when the files or nodes path is not configured.
var ErrMissingInput = errors.New("both a files list and a nodes list are required")

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	registry *prometheus.Registry
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.NewMemoryStorage(cfg.RunHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to create run storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register allocator metrics: %w", err)
	}

	handler := api.NewHandler(store,
		api.WithHandlerLogger(logger),
		api.WithMaxEntries(cfg.MaxRequestEntries),
		api.WithUnassignedLabel(cfg.UnassignedLabel),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &App{
		storage:  store,
		registry: registry,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter, metricsHandler)),
	}, nil
}

// BuildRootHandler constructs the root HTTP handler that routes API and metrics requests.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", metricsHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// RunBatch loads the files and nodes lists named by cfg from fs, allocates the
// files and writes the result to cfg.OutputFile, or to stdout when no output
// file is configured.
func RunBatch(cfg config.Config, fs afero.Fs, stdout io.Writer, logger *zap.Logger) error {
	if cfg.ItemsFile == "" || cfg.NodesFile == "" {
		return ErrMissingInput
	}

	itemRecs, err := records.Load(fs, cfg.ItemsFile)
	if err != nil {
		return fmt.Errorf("load files list: %w", err)
	}
	nodeRecs, err := records.Load(fs, cfg.NodesFile)
	if err != nil {
		return fmt.Errorf("load nodes list: %w", err)
	}
	logger.Debug("records loaded",
		zap.String("files", cfg.ItemsFile),
		zap.Int("file_count", len(itemRecs)),
		zap.String("nodes", cfg.NodesFile),
		zap.Int("node_count", len(nodeRecs)),
	)

	start := time.Now()
	res, err := allocator.Run(records.ToItems(itemRecs), records.ToContainers(nodeRecs), allocator.WithLogger(logger))
	metrics.ObserveRun(res, err, time.Since(start))
	if err != nil {
		if errors.Is(err, allocator.ErrNoContainers) {
			return fmt.Errorf("allocate %d files: %s lists no nodes: %w", len(itemRecs), cfg.NodesFile, err)
		}
		return fmt.Errorf("allocate: %w", err)
	}

	opts := output.Options{Format: cfg.OutputFormat, UnassignedLabel: cfg.UnassignedLabel}
	if cfg.OutputFile == "" {
		if err := output.Write(stdout, res, opts); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	} else if err := output.WriteFile(fs, cfg.OutputFile, res, opts); err != nil {
		return err
	}

	logger.Info("allocation finished",
		zap.Int("files", res.Len()),
		zap.Int("assigned", res.AssignedCount()),
		zap.Int("nodes", len(res.Containers)),
		zap.String("output", cfg.OutputFile),
	)
	return nil
}
