package core

import (
	"cmp"
	"slices"
	"time"

	"github.com/vovakirdan/hmirc/internal/metrics"
	"github.com/vovakirdan/hmirc/internal/remote"
)

// AdjustMargin widens each fetch window below the cursor because the remote
// service does not compare timestamps strictly exclusively.
const AdjustMargin = 0.0001

// Cursor is the polling position of one active identity.
type Cursor struct {
	// Timestamp is the lower bound, in seconds, for the next fetch.
	Timestamp float64
	// Pivot is the id of the last delivered message, empty until one is seen.
	Pivot string
}

// Poller turns overlapping, unordered fetch results into an ordered stream
// with no duplicates. The cursor only moves forward.
type Poller struct {
	cursor Cursor
}

// Reset discards the cursor and restarts it at now minus lookback.
func (p *Poller) Reset(now time.Time, lookback time.Duration) {
	p.cursor = Cursor{Timestamp: toSeconds(now.Add(-lookback))}
}

// Cursor returns the current position.
func (p *Poller) Cursor() Cursor {
	return p.cursor
}

// After is the lower bound for the next fetch.
func (p *Poller) After() float64 {
	return p.cursor.Timestamp - AdjustMargin
}

// Process filters, orders and trims a raw fetch result. The returned slice is
// what should be delivered; call Commit with it after delivery.
func (p *Poller) Process(raw []remote.Message) []remote.Message {
	valid := filterValid(raw)
	metrics.PollOutcome(metrics.OutcomeMalformed, len(raw)-len(valid))

	sortMessages(valid)
	unique := dropRepeatedIDs(valid)
	fresh := trimThroughPivot(unique, p.cursor.Pivot)
	metrics.PollOutcome(metrics.OutcomeDuplicate, len(valid)-len(fresh))
	return fresh
}

// Commit advances the cursor to the last message of a delivered batch.
func (p *Poller) Commit(delivered []remote.Message) {
	if len(delivered) == 0 {
		return
	}
	last := delivered[len(delivered)-1]
	if t := last.Timestamp(); t > p.cursor.Timestamp {
		p.cursor.Timestamp = t
	}
	p.cursor.Pivot = last.ID
}

// filterValid drops messages missing an id or timestamp.
func filterValid(msgs []remote.Message) []remote.Message {
	out := make([]remote.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Valid() {
			out = append(out, m)
		}
	}
	return out
}

// sortMessages orders by timestamp, then id.
func sortMessages(msgs []remote.Message) {
	slices.SortStableFunc(msgs, func(a, b remote.Message) int {
		if c := cmp.Compare(a.Timestamp(), b.Timestamp()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// dropRepeatedIDs keeps the first occurrence of each id in a sorted batch.
// The same id may come back with a different timestamp, so adjacency is not enough.
func dropRepeatedIDs(sorted []remote.Message) []remote.Message {
	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, m := range sorted {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// trimThroughPivot drops everything up to and including the pivot. When the
// pivot is not in the batch it has aged out of the fetch window and the
// whole batch is kept.
func trimThroughPivot(sorted []remote.Message, pivot string) []remote.Message {
	if pivot == "" {
		return sorted
	}
	for i, m := range sorted {
		if m.ID == pivot {
			return sorted[i+1:]
		}
	}
	return sorted
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
