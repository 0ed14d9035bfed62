package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	return New(backend)
}

func makeRecords(n int, prefix string) []model.VehicleRecord {
	recs := make([]model.VehicleRecord, n)
	for i := range recs {
		recs[i] = model.VehicleRecord{
			DeviceIMEI:    prefix + string(rune('a'+i)),
			VehicleNumber: prefix,
		}
	}
	return recs
}

func TestReadEmptyStoreIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read on empty store: got %v, want ErrNotFound", err)
	}

	_, ok, err := s.AgeInHours(context.Background())
	if err != nil {
		t.Fatalf("AgeInHours: %v", err)
	}
	if ok {
		t.Error("AgeInHours reported a known age for an empty store")
	}
}

func TestWriteRecomputesTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ds := &model.Dataset{
		Records:      makeRecords(3, "v"),
		TotalRecords: 999, // stale on purpose; Write must recompute
	}
	if err := s.Write(ctx, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", got.TotalRecords)
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped")
	}
}

func TestLastUpdatedMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	later := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return later }
	if err := s.Write(ctx, &model.Dataset{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Clock goes backwards (e.g. NTP step); LastUpdated must not.
	s.now = func() time.Time { return later.Add(-time.Hour) }
	ds, _ := s.Read(ctx)
	if err := s.Write(ctx, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.LastUpdated.Before(later) {
		t.Errorf("LastUpdated moved backwards: %v < %v", got.LastUpdated, later)
	}
}

func TestAppendOrReplaceBatchReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d1 := model.BatchKey{StartDate: "2024-01-01", EndDate: "2024-01-01"}
	d2 := model.BatchKey{StartDate: "2024-01-02", EndDate: "2024-01-02"}

	if _, err := s.AppendOrReplaceBatch(ctx, makeRecords(10, "old"), d1, model.FetchParams{StartDate: d1.StartDate, EndDate: d1.EndDate}); err != nil {
		t.Fatalf("seed d1: %v", err)
	}
	if _, err := s.AppendOrReplaceBatch(ctx, makeRecords(5, "keep"), d2, model.FetchParams{StartDate: d2.StartDate, EndDate: d2.EndDate}); err != nil {
		t.Fatalf("seed d2: %v", err)
	}

	ds, err := s.AppendOrReplaceBatch(ctx, makeRecords(3, "new"), d1, model.FetchParams{StartDate: d1.StartDate, EndDate: d1.EndDate})
	if err != nil {
		t.Fatalf("replace d1: %v", err)
	}

	if ds.TotalRecords != 8 {
		t.Fatalf("TotalRecords = %d, want 8 (3 replaced + 5 kept)", ds.TotalRecords)
	}

	var d1Count, d2Count int
	for _, r := range ds.Records {
		switch {
		case d1.Matches(r):
			d1Count++
			if r.VehicleNumber != "new" {
				t.Errorf("record from the replaced batch survived: %+v", r)
			}
		case d2.Matches(r):
			d2Count++
		default:
			t.Errorf("record with unexpected batch key: %+v", r)
		}
		if r.FetchedAt.IsZero() {
			t.Errorf("record not stamped with FetchedAt: %+v", r)
		}
	}
	if d1Count != 3 || d2Count != 5 {
		t.Errorf("batch sizes = (%d, %d), want (3, 5)", d1Count, d2Count)
	}
}

func TestAppendOrReplaceBatchOnEmptyStore(t *testing.T) {
	s := newTestStore(t)

	key := model.BatchKey{StartDate: "2024-03-01", EndDate: "2024-03-01"}
	ds, err := s.AppendOrReplaceBatch(context.Background(), makeRecords(4, "v"), key, model.FetchParams{})
	if err != nil {
		t.Fatalf("AppendOrReplaceBatch: %v", err)
	}
	if ds.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", ds.TotalRecords)
	}
}

func TestPruneOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// Records with FetchedAt spanning 45 days back.
	recs := make([]model.VehicleRecord, 45)
	for i := range recs {
		recs[i] = model.VehicleRecord{
			DeviceIMEI: string(rune('a' + i%26)),
			FetchedAt:  now.AddDate(0, 0, -i),
		}
	}
	if err := s.Write(ctx, &model.Dataset{Records: recs}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	removed, err := s.PruneOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if removed != 14 {
		t.Errorf("removed = %d, want 14 (ages 31..44 days)", removed)
	}

	ds, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.TotalRecords != 31 {
		t.Errorf("TotalRecords = %d, want 31", ds.TotalRecords)
	}
	cutoff := now.AddDate(0, 0, -30)
	for _, r := range ds.Records {
		if r.FetchedAt.Before(cutoff) {
			t.Errorf("record older than cutoff survived: fetchedAt=%v", r.FetchedAt)
		}
	}
}

func TestPruneOnEmptyStoreIsNoop(t *testing.T) {
	s := newTestStore(t)
	removed, err := s.PruneOlderThan(context.Background(), 30)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, &model.Dataset{Records: makeRecords(5, "v")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	ds, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read after Clear: %v", err)
	}
	if ds.TotalRecords != 0 {
		t.Errorf("TotalRecords = %d after Clear, want 0", ds.TotalRecords)
	}
	if ds.LastUpdated.IsZero() {
		t.Error("Clear did not stamp LastUpdated")
	}
}
