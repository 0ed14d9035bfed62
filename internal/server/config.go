package server

import (
	"context"
	"fmt"

	"github.com/fleetsync-io/fleetsync/internal/cache"
	"github.com/fleetsync-io/fleetsync/internal/engine"
	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/internal/notifier"
	"github.com/fleetsync-io/fleetsync/internal/scheduler"
	"github.com/fleetsync-io/fleetsync/internal/store"
	"github.com/fleetsync-io/fleetsync/internal/upstream"
	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/mqtt"
	"github.com/fleetsync-io/fleetsync/pkg/options"
)

// Config aggregates every option group the daemon needs. It is produced by the
// command layer after flag/config/env merging and validation.
type Config struct {
	Http     *options.HttpOptions
	Store    *options.StoreOptions
	S3       *options.S3Options
	Cache    *options.CacheOptions
	Upstream *options.UpstreamOptions
	Sync     *options.SyncOptions
	Mqtt     *options.MqttOptions

	Logger log.Logger
}

// buildBackend selects and constructs the persistence backend. The returned
// *store.FileBackend is nil for non-file backends; the server uses it to
// decide whether file watching applies.
func buildBackend(ctx context.Context, cfg *Config) (store.Backend, *store.FileBackend, error) {
	switch cfg.Store.Backend {
	case options.StoreBackendFile:
		fb, err := store.NewFileBackend(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open data directory %q: %w", cfg.Store.DataDir, err)
		}
		return fb, fb, nil
	case options.StoreBackendS3:
		sb, err := store.NewS3Backend(ctx, cfg.S3, cfg.Store.ObjectKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to object storage: %w", err)
		}
		return sb, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// New assembles the full component graph: backend, store, cache, upstream
// client, optional MQTT notifier, engine and scheduler. ctx bounds background
// goroutines owned by components (cache janitor); it should be the process
// lifetime context.
func New(ctx context.Context, cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	backend, fileBackend, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	recordStore := store.New(backend)

	vehicleCache := cache.NewVehicleCache(
		cache.NewMemory(ctx, cfg.Cache.DefaultTTL, cfg.Cache.CleanupInterval),
		cfg.Cache.CompressThreshold,
		logger,
	)

	fetcher := upstream.NewClient(cfg.Upstream, logger)

	var (
		mqttClient mqtt.Client
		note       engine.Notifier
	)
	if cfg.Mqtt.Enabled() {
		mqttClient, err = mqtt.NewClient(cfg.Mqtt.ToClientConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to build mqtt client: %w", err)
		}
		note = notifier.NewMqttNotifier(mqttClient, cfg.Mqtt.TopicRoot, logger)
	}

	eng, err := engine.New(engine.Config{
		Store:        recordStore,
		Fetcher:      fetcher,
		VehicleCache: vehicleCache,
		Notifier:     note,
		FetchParams: model.FetchParams{
			AdminCode:  cfg.Upstream.AdminCode,
			ProjectIDs: cfg.Upstream.ProjectIDs,
		},
		FreshFor:      cfg.Sync.FreshFor,
		RetentionDays: cfg.Store.RetentionDays,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(eng, scheduler.Config{
		DailyHour:      cfg.Sync.DailyHour,
		BootCheck:      cfg.Sync.BootCheck,
		BootCheckDelay: cfg.Sync.BootCheckDelay,
		Logger:         logger,
	})

	return newServer(cfg, recordStore, vehicleCache, eng, sched, mqttClient, fileBackend, logger), nil
}
