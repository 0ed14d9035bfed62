package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/pkg/log"
)

func newTestCache(t *testing.T) (*Memory, *VehicleCache) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mem := NewMemory(ctx, 24*time.Hour, time.Minute)
	return mem, NewVehicleCache(mem, 4096, log.NewNopLogger())
}

func syntheticRecords(n int) []model.VehicleRecord {
	recs := make([]model.VehicleRecord, n)
	for i := range recs {
		recs[i] = model.VehicleRecord{
			DeviceIMEI:    fmt.Sprintf("imei-%06d", i),
			VehicleNumber: fmt.Sprintf("KA-%04d", i),
			Company:       fmt.Sprintf("company-%d", i%7),
			InactiveDays:  i % 30,
			StartDate:     "2024-05-01",
			EndDate:       "2024-05-01",
		}
	}
	return recs
}

func TestCompressionRoundTrip(t *testing.T) {
	_, vc := newTestCache(t)

	want := syntheticRecords(10000)
	vc.SetVehicles(want, 0)

	got, total, ok := vc.GetPage(1, len(want))
	if !ok {
		t.Fatal("GetPage missed immediately after SetVehicles")
	}
	if total != len(want) {
		t.Fatalf("total = %d, want %d", total, len(want))
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("round-tripped records differ from the originals")
	}
}

func TestLargePayloadIsActuallyCompressed(t *testing.T) {
	mem, vc := newTestCache(t)

	recs := syntheticRecords(10000)
	vc.SetVehicles(recs, 0)

	stored, ok := mem.Get(KeyVehicleList)
	if !ok {
		t.Fatal("entry missing")
	}
	raw, _ := json.Marshal(recs)
	if len(stored) >= len(raw) {
		t.Errorf("stored %d bytes, raw JSON is %d; expected compression to shrink it", len(stored), len(raw))
	}
}

func TestLegacyUncompressedEntryStillReadable(t *testing.T) {
	mem, vc := newTestCache(t)

	// Simulate an entry written before compression existed: plain JSON
	// straight into the byte cache.
	want := syntheticRecords(50)
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	mem.Set(KeyVehicleList, raw, 0)

	got, total, ok := vc.GetPage(1, 50)
	if !ok {
		t.Fatal("legacy entry reported as miss")
	}
	if total != 50 {
		t.Fatalf("total = %d, want 50", total)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("legacy entry decoded incorrectly")
	}
}

func TestPaginationSlice(t *testing.T) {
	_, vc := newTestCache(t)
	vc.SetVehicles(syntheticRecords(250), 0)

	tests := []struct {
		name      string
		page      int
		pageSize  int
		wantLen   int
		wantFirst string
	}{
		{"first page", 1, 100, 100, "imei-000000"},
		{"middle page", 2, 100, 100, "imei-000100"},
		{"short last page", 3, 100, 50, "imei-000200"},
		{"past the end", 4, 100, 0, ""},
		{"single page holds all", 1, 500, 250, "imei-000000"},
		{"zero page clamps to first", 0, 10, 10, "imei-000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, ok := vc.GetPage(tt.page, tt.pageSize)
			if !ok {
				t.Fatal("unexpected miss")
			}
			if total != 250 {
				t.Errorf("total = %d, want 250", total)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].DeviceIMEI != tt.wantFirst {
				t.Errorf("first record = %s, want %s", got[0].DeviceIMEI, tt.wantFirst)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := NewMemory(ctx, 24*time.Hour, time.Minute)

	base := time.Now()
	mem.now = func() time.Time { return base }
	mem.Set("k", []byte("v"), time.Minute)

	if _, ok := mem.Get("k"); !ok {
		t.Fatal("entry missing before expiry")
	}

	mem.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := mem.Get("k"); ok {
		t.Error("entry readable after expiry")
	}
}

func TestInvalidateDataset(t *testing.T) {
	mem, vc := newTestCache(t)

	vc.SetVehicles(syntheticRecords(10), 0)
	vc.SetMetadata(model.FetchParams{AdminCode: "A1"}, 0)
	vc.SetFilterOptions(FilterOptions{Companies: []string{"x"}}, 0)

	vc.InvalidateDataset()

	for _, key := range []string{KeyVehicleList, KeyMetadata, KeyFilterOptions} {
		if _, ok := mem.Get(key); ok {
			t.Errorf("key %s survived InvalidateDataset", key)
		}
	}
}

func TestFilterOptionsRoundTrip(t *testing.T) {
	_, vc := newTestCache(t)

	want := FilterOptions{
		Companies: []string{"acme", "globex"},
		Regions:   []string{"south"},
	}
	vc.SetFilterOptions(want, 0)

	got, ok := vc.GetFilterOptions()
	if !ok {
		t.Fatal("filter options missed after set")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
