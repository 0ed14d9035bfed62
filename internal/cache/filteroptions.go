package cache

import (
	"sort"

	"github.com/fleetsync-io/fleetsync/internal/model"
)

// ComputeFilterOptions derives the distinct-value lists for every filterable
// column. Values are deduplicated and sorted; empties are dropped.
func ComputeFilterOptions(records []model.VehicleRecord) FilterOptions {
	return FilterOptions{
		Companies: distinct(records, func(r model.VehicleRecord) string { return r.Company }),
		Branches:  distinct(records, func(r model.VehicleRecord) string { return r.Branch }),
		Projects:  distinct(records, func(r model.VehicleRecord) string { return r.Project }),
		Regions:   distinct(records, func(r model.VehicleRecord) string { return r.Region }),
		Resellers: distinct(records, func(r model.VehicleRecord) string { return r.Reseller }),
		Admins:    distinct(records, func(r model.VehicleRecord) string { return r.Admin }),
	}
}

func distinct(records []model.VehicleRecord, field func(model.VehicleRecord) string) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := field(r); v != "" {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
