package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetsync-io/fleetsync/internal/cache"
	"github.com/fleetsync-io/fleetsync/internal/engine"
	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/internal/pkg/metrics"
	"github.com/fleetsync-io/fleetsync/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// pagination is the page envelope of list responses.
type pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type storedVehiclesResponse struct {
	Success    bool                  `json:"success"`
	Data       []model.VehicleRecord `json:"data"`
	Pagination pagination            `json:"pagination"`
	Metadata   model.FetchParams     `json:"metadata"`
	Source     string                `json:"source"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func parsePageParams(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginationFor(page, pageSize, total int) pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
}

// handleStoredVehicles serves the persisted vehicle list, cache-first. A cache
// miss falls back to the record store and repopulates every derived entry.
func (s *Server) handleStoredVehicles(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePageParams(r)

	if records, total, ok := s.vehicleCache.GetPage(page, pageSize); ok {
		metrics.CacheRequestsTotal.WithLabelValues(cache.KeyVehicleList, "hit").Inc()
		meta, _ := s.vehicleCache.GetMetadata()
		writeJSON(w, http.StatusOK, storedVehiclesResponse{
			Success:    true,
			Data:       records,
			Pagination: paginationFor(page, pageSize, total),
			Metadata:   meta,
			Source:     "cache",
		})
		return
	}
	metrics.CacheRequestsTotal.WithLabelValues(cache.KeyVehicleList, "miss").Inc()

	ds, err := s.store.Read(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, storedVehiclesResponse{
				Success:    true,
				Data:       []model.VehicleRecord{},
				Pagination: paginationFor(page, pageSize, 0),
				Source:     "store",
			})
			return
		}
		s.logger.Error(err, "Failed to read record store")
		writeError(w, http.StatusInternalServerError, "failed to read stored vehicles")
		return
	}

	s.vehicleCache.SetVehicles(ds.Records, 0)
	s.vehicleCache.SetMetadata(ds.Metadata, 0)
	s.vehicleCache.SetFilterOptions(cache.ComputeFilterOptions(ds.Records), 0)

	writeJSON(w, http.StatusOK, storedVehiclesResponse{
		Success:    true,
		Data:       cache.Paginate(ds.Records, page, pageSize),
		Pagination: paginationFor(page, pageSize, ds.TotalRecords),
		Metadata:   ds.Metadata,
		Source:     "store",
	})
}

// handleFilterOptions serves the distinct-value lists for the UI's filter
// dropdowns. ?refresh=true bypasses the cache; concurrent recomputes collapse
// into one store read.
func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	if !refresh {
		if opts, ok := s.vehicleCache.GetFilterOptions(); ok {
			metrics.CacheRequestsTotal.WithLabelValues(cache.KeyFilterOptions, "hit").Inc()
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": opts})
			return
		}
		metrics.CacheRequestsTotal.WithLabelValues(cache.KeyFilterOptions, "miss").Inc()
	}

	v, err, _ := s.filterGroup.Do("filter-options", func() (any, error) {
		ds, err := s.store.Read(r.Context())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return cache.FilterOptions{}, nil
			}
			return nil, err
		}
		opts := cache.ComputeFilterOptions(ds.Records)
		s.vehicleCache.SetFilterOptions(opts, 0)
		return opts, nil
	})
	if err != nil {
		s.logger.Error(err, "Failed to compute filter options")
		writeError(w, http.StatusInternalServerError, "failed to compute filter options")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": v.(cache.FilterOptions)})
}

type fetchRequest struct {
	Overwrite bool `json:"overwrite"`
}

// syncResponse flattens the run result next to the success flag. Consumers
// read type, newVehicles, totalVehicles, lastUpdated and dataAge off the
// response root; nesting them would break the dashboard.
type syncResponse struct {
	Success bool `json:"success"`
	*engine.Result
}

// handleFetchVehicles triggers one engine run. A run already in flight yields
// 409; the caller retries or waits for the scheduler.
func (s *Server) handleFetchVehicles(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if r.Body != nil {
		// An empty or absent body means a plain, non-forced trigger.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res, err := s.engine.Sync(r.Context(), req.Overwrite)
	if err != nil {
		if errors.Is(err, engine.ErrSyncRunning) {
			writeError(w, http.StatusConflict, "a sync run is already in progress")
			return
		}
		s.logger.Error(err, "Sync trigger failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{Success: true, Result: res})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the store backend is reachable. A dataset
// that does not exist yet is a normal first-run state.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Read(r.Context()); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, "record store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
