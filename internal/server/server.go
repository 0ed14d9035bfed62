// Package server hosts the HTTP API and owns the process lifecycle: the
// request surface, the background scheduler and the optional dataset file
// watcher all run under one errgroup and stop together.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fleetsync-io/fleetsync/internal/cache"
	"github.com/fleetsync-io/fleetsync/internal/engine"
	"github.com/fleetsync-io/fleetsync/internal/scheduler"
	"github.com/fleetsync-io/fleetsync/internal/store"
	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/mqtt"
)

// Server ties the HTTP surface to the sync machinery.
type Server struct {
	cfg    *Config
	logger log.Logger

	store        *store.Store
	vehicleCache *cache.VehicleCache
	engine       *engine.Engine
	scheduler    *scheduler.Scheduler
	mqttClient   mqtt.Client
	fileBackend  *store.FileBackend

	filterGroup singleflight.Group
	httpServer  *http.Server
}

func newServer(
	cfg *Config,
	recordStore *store.Store,
	vehicleCache *cache.VehicleCache,
	eng *engine.Engine,
	sched *scheduler.Scheduler,
	mqttClient mqtt.Client,
	fileBackend *store.FileBackend,
	logger log.Logger,
) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger.WithName("server"),
		store:        recordStore,
		vehicleCache: vehicleCache,
		engine:       eng,
		scheduler:    sched,
		mqttClient:   mqttClient,
		fileBackend:  fileBackend,
	}

	var handler http.Handler = s.routes()
	handler = gorillahandlers.RecoveryHandler(
		gorillahandlers.PrintRecoveryStack(true),
	)(handler)
	if cfg.Http.EnableCORS {
		handler = gorillahandlers.CORS(
			gorillahandlers.AllowedOrigins([]string{"*"}),
			gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
	}
	handler = s.logRequests(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Http.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
	}
	return s
}

// routes builds the API router.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/vehicles/stored", s.handleStoredVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicles/filter-options", s.handleFilterOptions).Methods(http.MethodGet)
	r.HandleFunc("/api/cron/fetch-vehicles", s.handleFetchVehicles).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)
	return r
}

// Run starts the HTTP server, scheduler and auxiliary goroutines, blocking
// until ctx is cancelled or any of them fails. Shutdown is graceful within
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.mqttClient != nil {
		if err := s.mqttClient.Start(ctx); err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.mqttClient.Disconnect(dctx)
		}()
	}

	g.Go(func() error {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Http.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		sctx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(sctx)
	})

	g.Go(func() error {
		err := s.scheduler.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if s.fileBackend != nil && s.cfg.Store.WatchFile {
		g.Go(func() error {
			err := store.Watch(ctx, s.fileBackend, func() {
				s.logger.Info("Dataset file changed on disk, invalidating caches")
				s.vehicleCache.InvalidateDataset()
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logRequests is a thin request log using the structured logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start).String())
	})
}
