package timeline

import (
	"bytes"

	"github.com/xiaonanln/streamgraph/reactive"
)

// Table maps stream names to their latest timeline snapshot. A Table is
// immutable once assembled.
type Table struct {
	names     []string
	timelines map[string]Timeline[any]
}

// NewTable builds a table from parallel name and timeline slices.
func NewTable(names []string, timelines []Timeline[any]) Table {
	t := Table{
		names:     make([]string, len(names)),
		timelines: make(map[string]Timeline[any], len(names)),
	}
	copy(t.names, names)
	for i, name := range names {
		t.timelines[name] = timelines[i]
	}
	return t
}

// Get returns the timeline recorded under name.
func (t Table) Get(name string) (Timeline[any], bool) {
	tl, ok := t.timelines[name]
	return tl, ok
}

// Names returns the stream names in assembly order.
func (t Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of streams in the table.
func (t Table) Len() int {
	return len(t.names)
}

// TotalEntries returns the number of observations across all timelines.
func (t Table) TotalEntries() int {
	n := 0
	for _, tl := range t.timelines {
		n += tl.Len()
	}
	return n
}

// MarshalJSON encodes the table as an object keyed by stream name, keeping
// assembly order.
func (t Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.timelines[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Source names one recorded timeline feeding a Table.
type Source struct {
	Name     string
	Timeline reactive.Observable[Timeline[any]]
}

// Assemble joins the sources with combine-latest semantics: whenever any
// timeline produces a snapshot, a new Table holding the latest snapshot of
// every source is emitted. The first Table is emitted once every source has
// produced its initial snapshot.
func Assemble(sources []Source) reactive.Observable[Table] {
	names := make([]string, len(sources))
	obs := make([]reactive.Observable[Timeline[any]], len(sources))
	for i, s := range sources {
		names[i] = s.Name
		obs[i] = s.Timeline
	}
	return reactive.Map(reactive.CombineLatestAll(obs), func(tls []Timeline[any]) Table {
		return NewTable(names, tls)
	})
}
