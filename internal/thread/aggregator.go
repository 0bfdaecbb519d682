package thread

import "time"

// ParticipantStats accumulates activity for one participant
type ParticipantStats struct {
	ID            string
	Name          string
	OutCount      int // messages authored
	InCount       int // edges targeting this participant
	ResponseTimes []time.Duration
}

// ResponseSummary is the min/max/mean of a participant's response times.
// All fields are invalid when no sample was recorded.
type ResponseSummary struct {
	Min  NullDuration
	Max  NullDuration
	Mean NullDuration
}

// Aggregator accumulates per-participant counts and latency samples.
// It only ever adds; nothing is removed or recomputed.
type Aggregator struct {
	stats map[string]*ParticipantStats
	order []string // first-seen order of participant ids
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		stats: make(map[string]*ParticipantStats),
	}
}

// entry returns the stats for id, creating them with the given display name
func (a *Aggregator) entry(id, name string) *ParticipantStats {
	if ps, exists := a.stats[id]; exists {
		return ps
	}
	ps := &ParticipantStats{ID: id, Name: name}
	a.stats[id] = ps
	a.order = append(a.order, id)
	return ps
}

// RecordMessage counts one authored message
func (a *Aggregator) RecordMessage(m Message) {
	a.entry(m.Key, m.Author).OutCount++
}

// RecordInteraction counts one edge received by the target and keeps its latency
func (a *Aggregator) RecordInteraction(in Interaction) {
	ps := a.entry(in.TargetID, in.TargetID)
	ps.InCount++
	if in.TimeDiff.Valid {
		ps.ResponseTimes = append(ps.ResponseTimes, in.TimeDiff.Duration)
	}
}

// Len returns the number of distinct participants
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Get returns a copy of the stats for id
func (a *Aggregator) Get(id string) (ParticipantStats, bool) {
	ps, exists := a.stats[id]
	if !exists {
		return ParticipantStats{}, false
	}
	return ps.clone(), true
}

// Participants returns copies of all stats in first-seen order
func (a *Aggregator) Participants() []ParticipantStats {
	out := make([]ParticipantStats, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.stats[id].clone())
	}
	return out
}

func (ps *ParticipantStats) clone() ParticipantStats {
	c := *ps
	c.ResponseTimes = append([]time.Duration(nil), ps.ResponseTimes...)
	return c
}

// Summary computes min, max and mean over the response time samples
func (ps ParticipantStats) Summary() ResponseSummary {
	if len(ps.ResponseTimes) == 0 {
		return ResponseSummary{}
	}

	lo, hi := ps.ResponseTimes[0], ps.ResponseTimes[0]
	var total time.Duration
	for _, d := range ps.ResponseTimes {
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
		total += d
	}

	return ResponseSummary{
		Min:  Some(lo),
		Max:  Some(hi),
		Mean: Some(total / time.Duration(len(ps.ResponseTimes))),
	}
}
