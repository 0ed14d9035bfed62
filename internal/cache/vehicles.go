package cache

import (
	"time"

	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/pkg/log"
)

// VehicleCache is the typed facade over the byte cache for dataset-derived
// entries: the full vehicle list (compressed), fetch metadata, and the
// distinct-value filter options.
type VehicleCache struct {
	cache             Cache
	compressThreshold int
	logger            log.Logger
}

// FilterOptions holds the distinct values per filterable column, as served to
// the UI's dropdowns.
type FilterOptions struct {
	Companies []string `json:"companies"`
	Branches  []string `json:"branches"`
	Projects  []string `json:"projects"`
	Regions   []string `json:"regions"`
	Resellers []string `json:"resellers"`
	Admins    []string `json:"admins"`
}

// NewVehicleCache wraps a Cache with typed accessors.
func NewVehicleCache(c Cache, compressThreshold int, logger log.Logger) *VehicleCache {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &VehicleCache{
		cache:             c,
		compressThreshold: compressThreshold,
		logger:            logger.WithName("cache"),
	}
}

// SetVehicles stores the full record list. The list is the hot, large entry,
// so it goes through the compressing encoder.
func (vc *VehicleCache) SetVehicles(records []model.VehicleRecord, ttl time.Duration) {
	data, err := encode(records, vc.compressThreshold)
	if err != nil {
		// Cache trouble is never allowed to surface; the store stays correct.
		vc.logger.Warn("Failed to encode vehicle list for cache", "error", err)
		return
	}
	vc.cache.Set(KeyVehicleList, data, ttl)
}

// GetPage returns one page of the cached vehicle list plus the untruncated
// total. The full list is materialized and sliced; ok is false on a miss.
func (vc *VehicleCache) GetPage(page, pageSize int) (records []model.VehicleRecord, total int, ok bool) {
	data, ok := vc.cache.Get(KeyVehicleList)
	if !ok {
		return nil, 0, false
	}

	var all []model.VehicleRecord
	if err := decode(data, &all); err != nil {
		// Undecodable entry: drop it and report a miss.
		vc.logger.Warn("Dropping undecodable vehicle list cache entry", "error", err)
		vc.cache.Delete(KeyVehicleList)
		return nil, 0, false
	}

	return Paginate(all, page, pageSize), len(all), true
}

// SetMetadata stores the most recent fetch parameters.
func (vc *VehicleCache) SetMetadata(params model.FetchParams, ttl time.Duration) {
	data, err := encode(params, 0)
	if err != nil {
		vc.logger.Warn("Failed to encode metadata for cache", "error", err)
		return
	}
	vc.cache.Set(KeyMetadata, data, ttl)
}

// GetMetadata returns the cached fetch parameters.
func (vc *VehicleCache) GetMetadata() (model.FetchParams, bool) {
	data, ok := vc.cache.Get(KeyMetadata)
	if !ok {
		return model.FetchParams{}, false
	}
	var params model.FetchParams
	if err := decode(data, &params); err != nil {
		vc.cache.Delete(KeyMetadata)
		return model.FetchParams{}, false
	}
	return params, true
}

// SetFilterOptions stores the distinct-value lists.
func (vc *VehicleCache) SetFilterOptions(opts FilterOptions, ttl time.Duration) {
	data, err := encode(opts, vc.compressThreshold)
	if err != nil {
		vc.logger.Warn("Failed to encode filter options for cache", "error", err)
		return
	}
	vc.cache.Set(KeyFilterOptions, data, ttl)
}

// GetFilterOptions returns the cached distinct-value lists.
func (vc *VehicleCache) GetFilterOptions() (FilterOptions, bool) {
	data, ok := vc.cache.Get(KeyFilterOptions)
	if !ok {
		return FilterOptions{}, false
	}
	var opts FilterOptions
	if err := decode(data, &opts); err != nil {
		vc.cache.Delete(KeyFilterOptions)
		return FilterOptions{}, false
	}
	return opts, true
}

// InvalidateDataset removes every dataset-derived entry. Called after each
// successful write to the record store.
func (vc *VehicleCache) InvalidateDataset() {
	vc.cache.Delete(KeyVehicleList)
	vc.cache.Delete(KeyMetadata)
	vc.cache.Delete(KeyFilterOptions)
}

// Paginate slices records for a 1-based page of pageSize entries. Pages past
// the end yield an empty slice, never an error.
func Paginate(records []model.VehicleRecord, page, pageSize int) []model.VehicleRecord {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	start := (page - 1) * pageSize
	if start >= len(records) {
		return []model.VehicleRecord{}
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}
