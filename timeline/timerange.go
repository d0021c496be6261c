package timeline

import (
	"math"
)

// Range is the [Start, End] span of every timestamp in a Table. It is not
// Valid while the table holds no entries at all.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Valid bool  `json:"valid"`
}

// Duration returns End - Start, or 0 for an invalid range.
func (r Range) Duration() int64 {
	if !r.Valid {
		return 0
	}
	return r.End - r.Start
}

// ComputeRange scans every timestamp of every timeline in the table.
func ComputeRange(t Table) Range {
	var r Range
	for _, name := range t.names {
		for _, e := range t.timelines[name].entries {
			if !r.Valid {
				r = Range{Start: e.Timestamp, End: e.Timestamp, Valid: true}
				continue
			}
			if e.Timestamp < r.Start {
				r.Start = e.Timestamp
			}
			if e.Timestamp > r.End {
				r.End = e.Timestamp
			}
		}
	}
	return r
}

// DefaultPercent selects the end of the range, i.e. "now".
const DefaultPercent = 1.0

// CurrentRange is a Range with a user-selected cursor inside it.
type CurrentRange struct {
	Start          int64   `json:"start"`
	End            int64   `json:"end"`
	Current        int64   `json:"current"`
	CurrentPercent float64 `json:"currentPercent"`
	Valid          bool    `json:"valid"`
}

// ClampPercent limits p to [0, 1]. NaN selects DefaultPercent.
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return DefaultPercent
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// NewCurrentRange places the cursor at Start + percent*(End-Start).
// Increasing percent never moves the cursor backwards.
func NewCurrentRange(r Range, percent float64) CurrentRange {
	percent = ClampPercent(percent)
	cr := CurrentRange{
		Start:          r.Start,
		End:            r.End,
		CurrentPercent: percent,
		Valid:          r.Valid,
	}
	if !r.Valid {
		return cr
	}
	cr.Current = r.Start + int64(math.Round(percent*float64(r.End-r.Start)))
	return cr
}
