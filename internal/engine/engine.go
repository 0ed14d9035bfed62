// Package engine implements the freshness decision engine: the only component
// allowed to trigger writes to the durable record store. It evaluates the
// stored dataset's state, decides between skipping, appending and overwriting,
// and carries the chosen path through fetch, persist, prune and cache refresh.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/fleetsync-io/fleetsync/internal/cache"
	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/internal/pkg/metrics"
	"github.com/fleetsync-io/fleetsync/internal/store"
	"github.com/fleetsync-io/fleetsync/internal/upstream"
	"github.com/fleetsync-io/fleetsync/pkg/log"
)

// Run lifecycle states and events for the guard machine.
const (
	stateIdle       = "idle"
	stateDeciding   = "deciding"
	stateFetching   = "fetching"
	statePersisting = "persisting"

	eventBegin   = "begin"
	eventFetch   = "fetch"
	eventPersist = "persist"
	eventFinish  = "finish"
)

// ErrSyncRunning is returned when a trigger arrives while a run is in flight.
// Triggers are serialized, never queued; the next scheduled trigger retries.
var ErrSyncRunning = errors.New("a sync run is already in progress")

// Result types reported to callers, preserved verbatim for the UI contract.
const (
	ResultSkipFresh   = "skip_fresh"
	ResultCronRefresh = "cron_refresh"
	ResultEmpty       = "empty"
)

// Result summarizes one engine run.
type Result struct {
	RunID         string    `json:"runId"`
	Type          string    `json:"type"`
	Decision      Decision  `json:"decision"`
	NewVehicles   int       `json:"newVehicles"`
	TotalVehicles int       `json:"totalVehicles"`
	LastUpdated   time.Time `json:"lastUpdated"`
	DataAgeHours  float64   `json:"dataAge"`
}

// Fetcher is the upstream client surface the engine needs.
type Fetcher interface {
	FetchAll(ctx context.Context, window upstream.DateWindow) ([]model.VehicleRecord, error)
}

// Notifier announces a completed refresh to interested parties. Failures are
// logged and swallowed; notification is best-effort.
type Notifier interface {
	DatasetRefreshed(ctx context.Context, res *Result)
}

// Config carries the engine's collaborators and policy knobs.
type Config struct {
	Store         *store.Store
	Fetcher       Fetcher
	VehicleCache  *cache.VehicleCache
	Notifier      Notifier // optional
	FetchParams   model.FetchParams
	FreshFor      time.Duration
	RetentionDays int
	Logger        log.Logger
}

// Engine is safe for concurrent triggering; the lifecycle machine admits one
// run at a time and rejects the rest with ErrSyncRunning.
type Engine struct {
	cfg    Config
	fsm    *fsm.FSM
	now    func() time.Time
	logger log.Logger
}

// New creates an Engine. Store, Fetcher and VehicleCache are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil || cfg.Fetcher == nil || cfg.VehicleCache == nil {
		return nil, fmt.Errorf("engine requires a store, a fetcher and a vehicle cache")
	}
	if cfg.FreshFor <= 0 {
		cfg.FreshFor = time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}

	machine := fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{stateIdle}, Dst: stateDeciding},
			{Name: eventFetch, Src: []string{stateDeciding}, Dst: stateFetching},
			{Name: eventPersist, Src: []string{stateFetching}, Dst: statePersisting},
			{Name: eventFinish, Src: []string{stateDeciding, stateFetching, statePersisting}, Dst: stateIdle},
		},
		fsm.Callbacks{},
	)

	return &Engine{
		cfg:    cfg,
		fsm:    machine,
		now:    time.Now,
		logger: cfg.Logger.WithName("engine"),
	}, nil
}

// Sync runs one freshness evaluation and, when the decision calls for it, one
// fetch-and-persist cycle. force requests a full overwrite regardless of age.
// A failed fetch leaves previously persisted data fully intact.
func (e *Engine) Sync(ctx context.Context, force bool) (*Result, error) {
	if err := e.fsm.Event(ctx, eventBegin); err != nil {
		metrics.SyncRunsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrSyncRunning
	}
	defer func() {
		// Whatever happened, the machine must come home.
		_ = e.fsm.Event(ctx, eventFinish)
	}()

	started := e.now()
	defer func() {
		metrics.SyncDuration.Observe(e.now().Sub(started).Seconds())
	}()

	res := &Result{RunID: uuid.NewString()}
	logger := e.logger.WithValues("runID", res.RunID, "force", force)

	st, err := e.datasetState(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to inspect record store: %w", err)
	}
	metrics.DatasetAgeHours.Set(st.AgeHours)

	today := e.now()
	res.Decision = Decide(st, today, force, e.cfg.FreshFor)
	logger.Info("Freshness decision",
		"decision", string(res.Decision),
		"storedRecords", st.RecordCount,
		"storedBatchDate", st.BatchDate,
		"ageHours", st.AgeHours)

	if !res.Decision.fetches() {
		res.Type = ResultSkipFresh
		res.TotalVehicles = st.RecordCount
		res.LastUpdated = st.LastUpdated
		res.DataAgeHours = st.AgeHours
		metrics.SyncRunsTotal.WithLabelValues(ResultSkipFresh).Inc()
		return res, nil
	}

	if err := e.fsm.Event(ctx, eventFetch); err != nil {
		return nil, err
	}

	key := model.DayKey(today)
	window := upstream.DateWindow{StartDate: key.StartDate, EndDate: key.EndDate}
	records, err := e.cfg.Fetcher.FetchAll(ctx, window)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		logger.Error(err, "Upstream fetch failed; stored data left untouched")
		return nil, err
	}
	res.NewVehicles = len(records)

	if err := e.fsm.Event(ctx, eventPersist); err != nil {
		return nil, err
	}

	params := e.cfg.FetchParams
	params.StartDate = key.StartDate
	params.EndDate = key.EndDate

	var ds *model.Dataset
	if res.Decision.overwrites() {
		ds, err = e.cfg.Store.Replace(ctx, records, key, params)
	} else {
		ds, err = e.cfg.Store.AppendOrReplaceBatch(ctx, records, key, params)
	}
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist fetched records: %w", err)
	}

	if pruned, err := e.cfg.Store.PruneOlderThan(ctx, e.cfg.RetentionDays); err != nil {
		// The fetch already landed; pruning failure is not worth failing the run.
		logger.Error(err, "Retention pruning failed")
	} else if pruned > 0 {
		metrics.RecordsPruned.Add(float64(pruned))
		logger.Info("Pruned aged records", "removed", pruned, "retentionDays", e.cfg.RetentionDays)
		if ds, err = e.cfg.Store.Read(ctx); err != nil {
			return nil, err
		}
	}

	e.refreshCaches(ds)
	metrics.DatasetRecords.Set(float64(ds.TotalRecords))

	res.TotalVehicles = ds.TotalRecords
	res.LastUpdated = ds.LastUpdated
	res.DataAgeHours = e.now().Sub(ds.LastUpdated).Hours()
	if res.NewVehicles == 0 {
		res.Type = ResultEmpty
	} else {
		res.Type = ResultCronRefresh
	}
	metrics.SyncRunsTotal.WithLabelValues(res.Type).Inc()

	logger.Info("Sync complete",
		"type", res.Type,
		"newVehicles", res.NewVehicles,
		"totalVehicles", res.TotalVehicles)

	if e.cfg.Notifier != nil {
		e.cfg.Notifier.DatasetRefreshed(ctx, res)
	}
	return res, nil
}

// datasetState reads the store into the engine's decision inputs. A missing
// dataset is a normal state, not an error.
func (e *Engine) datasetState(ctx context.Context) (DatasetState, error) {
	ds, err := e.cfg.Store.Read(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DatasetState{}, nil
		}
		return DatasetState{}, err
	}
	return DatasetState{
		RecordCount: ds.TotalRecords,
		LastUpdated: ds.LastUpdated,
		BatchDate:   ds.BatchDate(),
		AgeHours:    e.now().Sub(ds.LastUpdated).Hours(),
		Exists:      true,
	}, nil
}

// refreshCaches repopulates every dataset-derived cache entry after a write.
func (e *Engine) refreshCaches(ds *model.Dataset) {
	vc := e.cfg.VehicleCache
	vc.InvalidateDataset()
	vc.SetVehicles(ds.Records, 0)
	vc.SetMetadata(ds.Metadata, 0)
	vc.SetFilterOptions(cache.ComputeFilterOptions(ds.Records), 0)
}
