package timeline

import (
	"math"
	"testing"

	"github.com/xiaonanln/streamgraph/reactive"
)

func TestAssembleEmitsAllKeysInitially(t *testing.T) {
	ints := reactive.NewSubject[int]()
	strs := reactive.NewSubject[string]()
	now := fakeNow(100, 1)

	var tables []Table
	Assemble([]Source{
		{Name: "ints", Timeline: RecordErased[int](ints, now, 0)},
		{Name: "strs", Timeline: RecordErased[string](strs, now, 0)},
	}).Subscribe(func(tb Table) { tables = append(tables, tb) })

	if len(tables) != 1 {
		t.Fatalf("got %d initial tables, want 1", len(tables))
	}
	for _, name := range []string{"ints", "strs"} {
		tl, ok := tables[0].Get(name)
		if !ok {
			t.Fatalf("initial table missing %q", name)
		}
		if tl.Len() != 0 {
			t.Fatalf("initial %q has %d entries", name, tl.Len())
		}
	}
	if r := ComputeRange(tables[0]); r.Valid {
		t.Fatalf("range of empty table is valid: %+v", r)
	}

	ints.Next(1)
	strs.Next("x")

	if len(tables) != 3 {
		t.Fatalf("got %d tables, want 3", len(tables))
	}
	last := tables[2]
	// The unchanged timeline is carried over from the previous table.
	if tl, _ := last.Get("ints"); tl.Len() != 1 {
		t.Fatalf("ints has %d entries in latest table, want 1", tl.Len())
	}
	if last.TotalEntries() != 2 {
		t.Fatalf("TotalEntries() = %d, want 2", last.TotalEntries())
	}
	if names := last.Names(); len(names) != 2 || names[0] != "ints" || names[1] != "strs" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestComputeRange(t *testing.T) {
	a := Empty[any](0).Append(50, 1).Append(70, 2)
	b := Empty[any](0).Append(20, "x")
	c := Empty[any](0)
	r := ComputeRange(NewTable([]string{"a", "b", "c"}, []Timeline[any]{a, b, c}))

	if !r.Valid || r.Start != 20 || r.End != 70 {
		t.Fatalf("range = %+v, want [20, 70]", r)
	}
	if r.Duration() != 50 {
		t.Fatalf("Duration() = %d, want 50", r.Duration())
	}
}

func TestComputeRangeSingleEntry(t *testing.T) {
	a := Empty[any](0).Append(42, 1)
	r := ComputeRange(NewTable([]string{"a"}, []Timeline[any]{a}))
	if !r.Valid || r.Start != 42 || r.End != 42 {
		t.Fatalf("range = %+v, want [42, 42]", r)
	}
}

func TestCurrentRangeInterpolates(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	r := Range{Start: t0, End: t0 + 10000, Valid: true}

	cr := NewCurrentRange(r, 0.5)
	if cr.Current != t0+5000 {
		t.Fatalf("Current = %d, want %d", cr.Current, t0+5000)
	}
	if got := NewCurrentRange(r, DefaultPercent).Current; got != r.End {
		t.Fatalf("default cursor = %d, want %d", got, r.End)
	}
	if got := NewCurrentRange(r, 0).Current; got != r.Start {
		t.Fatalf("0%% cursor = %d, want %d", got, r.Start)
	}
}

func TestCurrentRangeMonotonic(t *testing.T) {
	r := Range{Start: 1000, End: 1007, Valid: true}
	prev := int64(math.MinInt64)
	for i := 0; i <= 1000; i++ {
		cur := NewCurrentRange(r, float64(i)/1000).Current
		if cur < prev {
			t.Fatalf("cursor moved backwards at %d: %d < %d", i, cur, prev)
		}
		prev = cur
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0.25, 0.25},
		{1.5, 1},
		{math.NaN(), DefaultPercent},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestCurrentRangeInvalid(t *testing.T) {
	cr := NewCurrentRange(Range{}, 0.5)
	if cr.Valid {
		t.Fatalf("current range over invalid range is valid: %+v", cr)
	}
}
