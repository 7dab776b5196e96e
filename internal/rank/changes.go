package rank

import (
	"strconv"
)

// Thresholds are the minimum deltas that flag a row as changed. ROI and Kelly
// are compared in percentage points, prices in absolute terms.
type Thresholds struct {
	ROIPct   float64
	Price    float64
	KellyPct float64
}

// DefaultThresholds returns the shipped defaults: 0.5pp for ROI/Kelly,
// 0.001 for prices.
func DefaultThresholds() Thresholds {
	return Thresholds{ROIPct: 0.5, Price: 0.001, KellyPct: 0.5}
}

// SnapshotEntry is the retained slice of a prior cycle's opportunity used for
// delta comparison.
type SnapshotEntry struct {
	Key        string
	ROI        float64
	BestAsk    float64
	BuyNoPrice float64
	Kelly      float64
}

// ChangeSet is advisory presentation metadata; it never affects ranking order.
type ChangeSet struct {
	New     map[string]bool
	Changed map[string][]string
}

// Snapshot reduces a ranked list to the fields compared next cycle.
func Snapshot(opps []Opportunity) []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(opps))
	for _, o := range opps {
		out = append(out, SnapshotEntry{
			Key:        o.Key(),
			ROI:        o.ROI,
			BestAsk:    o.BestAsk,
			BuyNoPrice: o.BuyNoPrice,
			Kelly:      o.Kelly,
		})
	}
	return out
}

// DetectChanges diffs the current ranked list against the previous snapshot.
// A nil previous snapshot (first run) produces no markers at all.
func DetectChanges(previous []SnapshotEntry, current []Opportunity, th Thresholds) ChangeSet {
	changes := ChangeSet{
		New:     map[string]bool{},
		Changed: map[string][]string{},
	}
	if previous == nil {
		return changes
	}

	prevByKey := make(map[string]SnapshotEntry, len(previous))
	for _, e := range previous {
		prevByKey[e.Key] = e
	}

	for _, o := range current {
		key := o.Key()
		prev, ok := prevByKey[key]
		if !ok {
			changes.New[key] = true
			continue
		}

		var fields []string
		if abs(o.ROI-prev.ROI)*100 > th.ROIPct {
			fields = append(fields, "roi")
		}
		if abs(o.BestAsk-prev.BestAsk) > th.Price {
			fields = append(fields, "bestAsk")
		}
		if abs(o.BuyNoPrice-prev.BuyNoPrice) > th.Price {
			fields = append(fields, "buyNo")
		}
		if abs(o.Kelly-prev.Kelly)*100 > th.KellyPct {
			fields = append(fields, "kelly")
		}
		if len(fields) > 0 {
			changes.Changed[key] = fields
		}
	}
	return changes
}

func opportunityKey(ticker string, strike float64) string {
	return ticker + "-" + strconv.FormatFloat(strike, 'f', -1, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
