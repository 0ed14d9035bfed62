package engine

import (
	"time"

	"github.com/fleetsync-io/fleetsync/internal/model"
)

// Decision is the outcome of one freshness evaluation.
type Decision string

const (
	// DecisionForceFetch means the store is empty; fetch regardless of age.
	DecisionForceFetch Decision = "force_fetch"

	// DecisionOverwrite means fetch and replace the entire dataset.
	DecisionOverwrite Decision = "fetch_overwrite"

	// DecisionAppend means fetch and replace only today's batch, preserving
	// other days' history.
	DecisionAppend Decision = "fetch_append"

	// DecisionSkip means the stored data is fresh enough; no network call.
	DecisionSkip Decision = "skip_fresh"
)

// overwrites reports whether the decision discards prior batches.
func (d Decision) overwrites() bool {
	return d == DecisionForceFetch || d == DecisionOverwrite
}

// fetches reports whether the decision requires an upstream call.
func (d Decision) fetches() bool {
	return d != DecisionSkip
}

// DatasetState is the engine's view of the store at evaluation time.
type DatasetState struct {
	RecordCount int
	LastUpdated time.Time
	BatchDate   string // start date of the stored batch, "" when empty
	AgeHours    float64
	Exists      bool // false when the store has never been written
}

// Decide evaluates the freshness policy. Rules are checked in order; the
// first match wins:
//
//  1. empty store            -> force fetch (empty is always stale)
//  2. forced                 -> fetch and overwrite
//  3. stored batch != today  -> fetch and overwrite (never append across days)
//  4. same day, young enough -> skip
//  5. same day, aged         -> fetch and append (replace today's batch only)
func Decide(st DatasetState, today time.Time, force bool, freshFor time.Duration) Decision {
	if !st.Exists || st.RecordCount == 0 {
		return DecisionForceFetch
	}
	if force {
		return DecisionOverwrite
	}
	if st.BatchDate != today.Format(model.DateLayout) {
		return DecisionOverwrite
	}
	if st.AgeHours < freshFor.Hours() {
		return DecisionSkip
	}
	return DecisionAppend
}
