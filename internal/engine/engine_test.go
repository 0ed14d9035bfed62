package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/cache"
	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/internal/store"
	"github.com/fleetsync-io/fleetsync/internal/upstream"
)

type fakeFetcher struct {
	mu      sync.Mutex
	records []model.VehicleRecord
	err     error
	calls   int
	block   chan struct{} // when set, FetchAll waits until closed
}

func (f *fakeFetcher) FetchAll(ctx context.Context, window upstream.DateWindow) ([]model.VehicleRecord, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClock is a settable clock shared between a test's store and engine.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t.IsZero() {
		return time.Now()
	}
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, fetcher *fakeFetcher) (*Engine, *store.Store, *testClock) {
	t.Helper()

	clock := &testClock{}
	backend, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := store.NewWithClock(backend, clock.now)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	vc := cache.NewVehicleCache(cache.NewMemory(ctx, time.Hour, time.Minute), 0, nil)

	eng, err := New(Config{
		Store:         s,
		Fetcher:       fetcher,
		VehicleCache:  vc,
		FreshFor:      time.Hour,
		RetentionDays: 30,
	})
	if err != nil {
		t.Fatal(err)
	}
	eng.now = clock.now
	return eng, s, clock
}

func records(n int, prefix string) []model.VehicleRecord {
	recs := make([]model.VehicleRecord, n)
	for i := range recs {
		recs[i] = model.VehicleRecord{DeviceIMEI: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return recs
}

func TestFreshDataSkipsWithoutFetching(t *testing.T) {
	fetcher := &fakeFetcher{records: records(5, "first")}
	eng, _, _ := newTestEngine(t, fetcher)
	ctx := context.Background()

	// First run populates the store (empty store forces a fetch).
	if _, err := eng.Sync(ctx, false); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("initial sync fetch calls = %d, want 1", fetcher.callCount())
	}

	// Second run minutes later must not touch the network.
	res, err := eng.Sync(ctx, false)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Type != ResultSkipFresh {
		t.Errorf("type = %s, want %s", res.Type, ResultSkipFresh)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("fetch calls = %d after fresh skip, want 1", fetcher.callCount())
	}
	if res.TotalVehicles != 5 {
		t.Errorf("totalVehicles = %d, want 5", res.TotalVehicles)
	}
}

func TestDayBoundaryOverwrites(t *testing.T) {
	fetcher := &fakeFetcher{records: records(3, "new")}
	eng, s, clock := newTestEngine(t, fetcher)
	ctx := context.Background()

	today := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	clock.set(today)

	// Seed the store with yesterday's batch.
	yesterday := model.BatchKey{StartDate: "2024-01-01", EndDate: "2024-01-01"}
	if _, err := s.AppendOrReplaceBatch(ctx, records(10, "old"), yesterday,
		model.FetchParams{StartDate: yesterday.StartDate, EndDate: yesterday.EndDate}); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Sync(ctx, false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Decision != DecisionOverwrite {
		t.Errorf("decision = %s, want %s", res.Decision, DecisionOverwrite)
	}

	ds, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ds.TotalRecords != 3 {
		t.Fatalf("TotalRecords = %d, want 3 (yesterday's 10 discarded)", ds.TotalRecords)
	}
	for _, r := range ds.Records {
		if r.StartDate != "2024-01-02" {
			t.Errorf("record carries batch date %s, want 2024-01-02", r.StartDate)
		}
	}
}

func TestSameDayAgedAppendsReplacingTodaysBatch(t *testing.T) {
	fetcher := &fakeFetcher{records: records(4, "later")}
	eng, s, clock := newTestEngine(t, fetcher)
	ctx := context.Background()

	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	clock.set(now)

	// Seed: yesterday's history plus an earlier fetch from today.
	yesterday := model.BatchKey{StartDate: "2024-01-01", EndDate: "2024-01-01"}
	if _, err := s.AppendOrReplaceBatch(ctx, records(6, "hist"), yesterday, model.FetchParams{}); err != nil {
		t.Fatal(err)
	}
	todayKey := model.DayKey(now)
	if _, err := s.AppendOrReplaceBatch(ctx, records(9, "morning"), todayKey,
		model.FetchParams{StartDate: todayKey.StartDate, EndDate: todayKey.EndDate}); err != nil {
		t.Fatal(err)
	}

	// Two hours later, same day.
	clock.set(now.Add(2 * time.Hour))

	res, err := eng.Sync(ctx, false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Decision != DecisionAppend {
		t.Fatalf("decision = %s, want %s", res.Decision, DecisionAppend)
	}

	ds, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// 6 from yesterday survive; today's 9 replaced by 4.
	if ds.TotalRecords != 10 {
		t.Errorf("TotalRecords = %d, want 10", ds.TotalRecords)
	}
}

func TestFailedFetchLeavesDataUntouched(t *testing.T) {
	fetcher := &fakeFetcher{records: records(5, "v")}
	eng, s, _ := newTestEngine(t, fetcher)
	ctx := context.Background()

	if _, err := eng.Sync(ctx, false); err != nil {
		t.Fatal(err)
	}
	before, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}

	fetcher.err = errors.New("upstream down")
	if _, err := eng.Sync(ctx, true); err == nil {
		t.Fatal("expected sync failure")
	}

	after, err := s.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after.TotalRecords != before.TotalRecords {
		t.Errorf("record count changed across failed fetch: %d -> %d", before.TotalRecords, after.TotalRecords)
	}
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Error("LastUpdated changed across failed fetch")
	}
}

func TestConcurrentTriggerRejected(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{records: records(2, "v"), block: block}
	eng, _, _ := newTestEngine(t, fetcher)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := eng.Sync(ctx, false)
		done <- err
	}()

	// Wait until the first run is inside the fetch.
	deadline := time.After(5 * time.Second)
	for fetcher.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first sync never reached the fetcher")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := eng.Sync(ctx, false); !errors.Is(err, ErrSyncRunning) {
		t.Errorf("concurrent trigger: got %v, want ErrSyncRunning", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// After the run drains the engine accepts triggers again.
	if _, err := eng.Sync(ctx, false); err != nil {
		t.Errorf("post-run trigger failed: %v", err)
	}
}

func TestEmptyFetchReportsEmptyType(t *testing.T) {
	fetcher := &fakeFetcher{records: nil}
	eng, _, _ := newTestEngine(t, fetcher)

	res, err := eng.Sync(context.Background(), false)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Type != ResultEmpty {
		t.Errorf("type = %s, want %s", res.Type, ResultEmpty)
	}
	if res.TotalVehicles != 0 {
		t.Errorf("totalVehicles = %d, want 0", res.TotalVehicles)
	}
}
