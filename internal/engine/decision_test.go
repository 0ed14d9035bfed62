package engine

import (
	"testing"
	"time"
)

func TestDecide(t *testing.T) {
	today := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	freshFor := time.Hour

	tests := []struct {
		name  string
		state DatasetState
		force bool
		want  Decision
	}{
		{
			name:  "never written forces fetch",
			state: DatasetState{},
			want:  DecisionForceFetch,
		},
		{
			name: "empty but arbitrarily fresh still forces fetch",
			state: DatasetState{
				Exists:    true,
				BatchDate: "2024-01-02",
				AgeHours:  0.1,
			},
			want: DecisionForceFetch,
		},
		{
			name: "forced overwrite beats freshness",
			state: DatasetState{
				Exists:      true,
				RecordCount: 100,
				BatchDate:   "2024-01-02",
				AgeHours:    0.1,
			},
			force: true,
			want:  DecisionOverwrite,
		},
		{
			name: "previous day's batch overwrites, never appends",
			state: DatasetState{
				Exists:      true,
				RecordCount: 100,
				BatchDate:   "2024-01-01",
				AgeHours:    0.5,
			},
			want: DecisionOverwrite,
		},
		{
			name: "same day under an hour skips",
			state: DatasetState{
				Exists:      true,
				RecordCount: 100,
				BatchDate:   "2024-01-02",
				AgeHours:    0.9,
			},
			want: DecisionSkip,
		},
		{
			name: "same day over an hour appends",
			state: DatasetState{
				Exists:      true,
				RecordCount: 100,
				BatchDate:   "2024-01-02",
				AgeHours:    1.5,
			},
			want: DecisionAppend,
		},
		{
			name: "empty beats forced overwrite in rule order",
			state: DatasetState{
				Exists:      true,
				RecordCount: 0,
				BatchDate:   "2024-01-02",
			},
			force: true,
			want:  DecisionForceFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, today, tt.force, freshFor)
			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecisionPredicates(t *testing.T) {
	if !DecisionForceFetch.overwrites() || !DecisionOverwrite.overwrites() {
		t.Error("force fetch and overwrite decisions must discard prior batches")
	}
	if DecisionAppend.overwrites() {
		t.Error("append must preserve other batches")
	}
	if DecisionSkip.fetches() {
		t.Error("skip must not reach the network")
	}
}
