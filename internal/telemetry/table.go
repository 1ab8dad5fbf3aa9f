// Package telemetry holds the in-memory representation of concatenated shots.
package telemetry

import (
	"fmt"
	"math"
	"sort"
)

// Sample is one timestamped observation of a shot.
type Sample struct {
	ShotID     string
	TimeUnixNs int64
	Channels   map[string]float64

	// TimeToDisruptionMs wins over DisruptionTimeUnixNs when both are set.
	// When neither is set the sample is treated as non-disruptive (+Inf).
	TimeToDisruptionMs   *float64
	DisruptionTimeUnixNs *int64
}

// Shot is the contiguous row range [Start, End) of one shot inside a Table.
type Shot struct {
	ID    string
	Start int
	End   int
}

// Len returns the number of rows of the shot.
func (s Shot) Len() int { return s.End - s.Start }

// Table is a columnar view of one or more shots keyed by (shot_id, time_unix_ns).
// Missing channel values are stored as NaN.
type Table struct {
	shotIDs []string
	times   []int64
	ttd     []float64

	columns map[string][]float64
	order   []string
	shots   []Shot
}

// NewTable groups samples by shot (first appearance order), sorts every shot by
// time and resolves time-to-disruption.
func NewTable(samples []Sample) (*Table, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("build table: no samples: %w", ErrInvalidInput)
	}

	groups := make(map[string][]Sample)
	var shotOrder []string
	channelSet := make(map[string]struct{})
	for _, s := range samples {
		if s.ShotID == "" {
			return nil, fmt.Errorf("build table: sample at %d has no shot_id: %w", s.TimeUnixNs, ErrInvalidInput)
		}
		if _, ok := groups[s.ShotID]; !ok {
			shotOrder = append(shotOrder, s.ShotID)
		}
		groups[s.ShotID] = append(groups[s.ShotID], s)
		for name := range s.Channels {
			channelSet[name] = struct{}{}
		}
	}

	channels := make([]string, 0, len(channelSet))
	for name := range channelSet {
		channels = append(channels, name)
	}
	sort.Strings(channels)

	n := len(samples)
	t := &Table{
		shotIDs: make([]string, 0, n),
		times:   make([]int64, 0, n),
		ttd:     make([]float64, 0, n),
		columns: make(map[string][]float64, len(channels)),
	}
	for _, name := range channels {
		t.columns[name] = make([]float64, 0, n)
		t.order = append(t.order, name)
	}

	for _, id := range shotOrder {
		rows := groups[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].TimeUnixNs < rows[j].TimeUnixNs })
		start := len(t.times)
		for _, s := range rows {
			t.shotIDs = append(t.shotIDs, s.ShotID)
			t.times = append(t.times, s.TimeUnixNs)
			t.ttd = append(t.ttd, ResolveTimeToDisruption(s))
			for _, name := range channels {
				v, ok := s.Channels[name]
				if !ok {
					v = math.NaN()
				}
				t.columns[name] = append(t.columns[name], v)
			}
		}
		t.shots = append(t.shots, Shot{ID: id, Start: start, End: len(t.times)})
	}

	return t, nil
}

// ResolveTimeToDisruption returns the sample's time to disruption in milliseconds.
func ResolveTimeToDisruption(s Sample) float64 {
	switch {
	case s.TimeToDisruptionMs != nil:
		return *s.TimeToDisruptionMs
	case s.DisruptionTimeUnixNs != nil:
		return float64(*s.DisruptionTimeUnixNs-s.TimeUnixNs) / 1e6
	default:
		return math.Inf(1)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.times) }

// Shots returns the shot ranges in table order.
func (t *Table) Shots() []Shot {
	out := make([]Shot, len(t.shots))
	copy(out, t.shots)
	return out
}

// ShotIDs returns the per-row shot identifiers. The slice must not be modified.
func (t *Table) ShotIDs() []string { return t.shotIDs }

// Times returns the per-row timestamps. The slice must not be modified.
func (t *Table) Times() []int64 { return t.times }

// TimeToDisruption returns the per-row time to disruption in ms. The slice must not be modified.
func (t *Table) TimeToDisruption() []float64 { return t.ttd }

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Column returns the named column. The slice must not be modified.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	return col, ok
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// SetColumn adds or replaces a derived column. The table takes ownership of values.
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != t.Len() {
		return fmt.Errorf("set column %q: got %d values for %d rows: %w", name, len(values), t.Len(), ErrInvalidInput)
	}
	if _, ok := t.columns[name]; !ok {
		t.order = append(t.order, name)
	}
	t.columns[name] = values
	return nil
}

// Validate checks the shot layout invariants: contiguous shots, non-decreasing
// time inside a shot and consistent column lengths.
func (t *Table) Validate() error {
	seen := make(map[string]struct{}, len(t.shots))
	for _, shot := range t.shots {
		if _, dup := seen[shot.ID]; dup {
			return fmt.Errorf("shot %s is not contiguous: %w", shot.ID, ErrInvalidInput)
		}
		seen[shot.ID] = struct{}{}
		for i := shot.Start + 1; i < shot.End; i++ {
			if t.times[i] < t.times[i-1] {
				return fmt.Errorf("shot %s: time decreases at row %d: %w", shot.ID, i, ErrInvalidInput)
			}
		}
	}
	for name, col := range t.columns {
		if len(col) != t.Len() {
			return fmt.Errorf("column %q has %d rows, want %d: %w", name, len(col), t.Len(), ErrInvalidInput)
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		shotIDs: append([]string(nil), t.shotIDs...),
		times:   append([]int64(nil), t.times...),
		ttd:     append([]float64(nil), t.ttd...),
		columns: make(map[string][]float64, len(t.columns)),
		order:   append([]string(nil), t.order...),
		shots:   append([]Shot(nil), t.shots...),
	}
	for name, col := range t.columns {
		c.columns[name] = append([]float64(nil), col...)
	}
	return c
}

// Subset returns a new table holding only the named shots, in table order.
func (t *Table) Subset(shotIDs []string) *Table {
	keep := make(map[string]struct{}, len(shotIDs))
	for _, id := range shotIDs {
		keep[id] = struct{}{}
	}

	c := &Table{
		columns: make(map[string][]float64, len(t.columns)),
		order:   append([]string(nil), t.order...),
	}
	for _, name := range t.order {
		c.columns[name] = make([]float64, 0)
	}
	for _, shot := range t.shots {
		if _, ok := keep[shot.ID]; !ok {
			continue
		}
		start := len(c.times)
		c.shotIDs = append(c.shotIDs, t.shotIDs[shot.Start:shot.End]...)
		c.times = append(c.times, t.times[shot.Start:shot.End]...)
		c.ttd = append(c.ttd, t.ttd[shot.Start:shot.End]...)
		for _, name := range t.order {
			c.columns[name] = append(c.columns[name], t.columns[name][shot.Start:shot.End]...)
		}
		c.shots = append(c.shots, Shot{ID: shot.ID, Start: start, End: len(c.times)})
	}
	return c
}
