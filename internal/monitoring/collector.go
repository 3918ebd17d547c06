package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/cost"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/store"
)

// scanLimit caps how many persisted complaints one collection reads.
const scanLimit = 10000

// Snapshot holds a point-in-time view of complaint processing health.
type Snapshot struct {
	// Complaints started within the lookback window.
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	InProgress int     `json:"in_progress"`
	FailRate   float64 `json:"fail_rate"`
	Critical   int     `json:"critical"`

	// LLM spend since the process started.
	LLMCalls int     `json:"llm_calls"`
	CostUSD  float64 `json:"cost_usd"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ComplaintLister is the part of store.Store the collector reads.
type ComplaintLister interface {
	ListComplaints(ctx context.Context, filter store.ComplaintFilter) ([]*model.WorkflowState, error)
}

// SpendSource reports accumulated LLM spend. *cost.Calculator satisfies it.
type SpendSource interface {
	Summary() cost.Summary
}

// Collector gathers snapshots from the complaint store and the cost tracker.
type Collector struct {
	store ComplaintLister
	spend SpendSource
	now   func() time.Time
}

// NewCollector creates a collector. spend may be nil.
func NewCollector(st ComplaintLister, spend SpendSource) *Collector {
	return &Collector{store: st, spend: spend, now: time.Now}
}

// Collect builds a snapshot over the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	states, err := c.store.ListComplaints(ctx, store.ComplaintFilter{Limit: scanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list complaints")
	}

	for _, st := range states {
		if st.StartedAt.Before(cutoff) {
			continue
		}
		snap.Total++
		switch {
		case st.Status == model.StatusCompleted:
			snap.Completed++
		case st.Status.IsFailed():
			snap.Failed++
		default:
			snap.InProgress++
		}
		if st.Analysis != nil && st.Analysis.Urgency == model.UrgencyCritical {
			snap.Critical++
		}
	}

	if finished := snap.Completed + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}

	if c.spend != nil {
		sum := c.spend.Summary()
		snap.LLMCalls = sum.Calls
		snap.CostUSD = sum.CostUSD
	}

	return snap, nil
}
