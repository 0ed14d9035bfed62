package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/model"
)

// ErrNotFound is returned by Read when no dataset has ever been persisted.
// This is a legitimate first-run state, not a failure.
var ErrNotFound = errors.New("no dataset persisted yet")

// envelopeVersion is bumped when the persisted layout changes. Older versions
// decode into the current struct with missing fields zero-valued.
const envelopeVersion = 1

// datasetEnvelope is the persisted form of a Dataset. Records and metadata
// live in one artifact so a crash can never leave them out of step.
type datasetEnvelope struct {
	Version      int                   `json:"version"`
	LastUpdated  time.Time             `json:"lastUpdated"`
	TotalRecords int                   `json:"totalRecords"`
	Metadata     model.FetchParams     `json:"metadata"`
	Records      []model.VehicleRecord `json:"records"`
}

// Store is the durable record store. All mutating operations are
// read-modify-write sequences serialized by a single writer lock; readers get
// a snapshot of the last fully written dataset.
type Store struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time
}

// New creates a Store over the given backend.
func New(backend Backend) *Store {
	return NewWithClock(backend, time.Now)
}

// NewWithClock creates a Store with an injected clock, used by tests and by
// callers that need deterministic FetchedAt stamps.
func NewWithClock(backend Backend, now func() time.Time) *Store {
	return &Store{
		backend: backend,
		now:     now,
	}
}

// Read loads the persisted dataset. Returns ErrNotFound when nothing has been
// written yet.
func (s *Store) Read(ctx context.Context) (*model.Dataset, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var env datasetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode dataset artifact: %w", err)
	}

	return &model.Dataset{
		Records:      env.Records,
		LastUpdated:  env.LastUpdated,
		TotalRecords: len(env.Records),
		Metadata:     env.Metadata,
	}, nil
}

// Write persists the full dataset, recomputing TotalRecords and stamping
// LastUpdated. LastUpdated never moves backwards across writes.
func (s *Store) Write(ctx context.Context, ds *model.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, ds)
}

func (s *Store) writeLocked(ctx context.Context, ds *model.Dataset) error {
	now := s.now()
	if now.After(ds.LastUpdated) {
		ds.LastUpdated = now
	}
	ds.TotalRecords = len(ds.Records)

	env := datasetEnvelope{
		Version:      envelopeVersion,
		LastUpdated:  ds.LastUpdated,
		TotalRecords: ds.TotalRecords,
		Metadata:     ds.Metadata,
		Records:      ds.Records,
	}
	data, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("failed to encode dataset artifact: %w", err)
	}
	return s.backend.Save(ctx, data)
}

// AppendOrReplaceBatch merges newRecords into the persisted dataset under a
// last-writer-wins, replace-by-batch policy: every existing record whose batch
// key equals key is dropped and the incoming records take their place; records
// from other batches are untouched. Callers must supply the complete record
// set for the batch. Each incoming record is stamped with FetchedAt and the
// batch window before storage.
func (s *Store) AppendOrReplaceBatch(ctx context.Context, newRecords []model.VehicleRecord, key model.BatchKey, params model.FetchParams) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		ds = &model.Dataset{}
	}

	kept := make([]model.VehicleRecord, 0, len(ds.Records))
	for _, r := range ds.Records {
		if !key.Matches(r) {
			kept = append(kept, r)
		}
	}

	fetchedAt := s.now()
	for i := range newRecords {
		newRecords[i].FetchedAt = fetchedAt
		newRecords[i].StartDate = key.StartDate
		newRecords[i].EndDate = key.EndDate
	}

	ds.Records = append(kept, newRecords...)
	ds.Metadata = params
	if err := s.writeLocked(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Replace discards the entire dataset and persists newRecords as the only
// batch, stamping provenance the same way AppendOrReplaceBatch does.
func (s *Store) Replace(ctx context.Context, newRecords []model.VehicleRecord, key model.BatchKey, params model.FetchParams) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetchedAt := s.now()
	for i := range newRecords {
		newRecords[i].FetchedAt = fetchedAt
		newRecords[i].StartDate = key.StartDate
		newRecords[i].EndDate = key.EndDate
	}

	ds := &model.Dataset{
		Records:  newRecords,
		Metadata: params,
	}
	if err := s.writeLocked(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// PruneOlderThan removes records whose FetchedAt precedes now-retentionDays
// and writes the filtered dataset back. Returns how many records were removed.
func (s *Store) PruneOlderThan(ctx context.Context, retentionDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	kept := ds.Records[:0]
	for _, r := range ds.Records {
		if !r.FetchedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}

	removed := len(ds.Records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	ds.Records = kept
	if err := s.writeLocked(ctx, ds); err != nil {
		return 0, err
	}
	return removed, nil
}

// AgeInHours reports how long ago the dataset was last written. ok is false
// when nothing has been persisted.
func (s *Store) AgeInHours(ctx context.Context) (hours float64, ok bool, err error) {
	ds, err := s.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return s.now().Sub(ds.LastUpdated).Hours(), true, nil
}

// Clear resets the store to an empty dataset with a fresh LastUpdated.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, &model.Dataset{Records: []model.VehicleRecord{}})
}
