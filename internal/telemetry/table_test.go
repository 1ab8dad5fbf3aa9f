package telemetry

import (
	"errors"
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestNewTableGroupsAndSortsShots(t *testing.T) {
	samples := []Sample{
		{ShotID: "b", TimeUnixNs: 2, Channels: map[string]float64{"ip": 20}},
		{ShotID: "a", TimeUnixNs: 3, Channels: map[string]float64{"ip": 3}},
		{ShotID: "b", TimeUnixNs: 1, Channels: map[string]float64{"ip": 10, "ne": 1}},
		{ShotID: "a", TimeUnixNs: 1, Channels: map[string]float64{"ip": 1}},
	}

	table, err := NewTable(samples)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	shots := table.Shots()
	if len(shots) != 2 || shots[0].ID != "b" || shots[1].ID != "a" {
		t.Fatalf("shots should keep first-appearance order, got %+v", shots)
	}
	if got := table.Times(); got[0] != 1 || got[1] != 2 || got[2] != 1 || got[3] != 3 {
		t.Fatalf("rows should be time ordered per shot, got %v", got)
	}

	ip, _ := table.Column("ip")
	if ip[0] != 10 || ip[1] != 20 {
		t.Fatalf("unexpected ip column %v", ip)
	}
	ne, _ := table.Column("ne")
	if ne[0] != 1 || !math.IsNaN(ne[1]) {
		t.Fatalf("missing channel values should be NaN, got %v", ne)
	}
}

func TestResolveTimeToDisruption(t *testing.T) {
	explicit := Sample{TimeUnixNs: 0, TimeToDisruptionMs: f64(12), DisruptionTimeUnixNs: i64(99_000_000)}
	if got := ResolveTimeToDisruption(explicit); got != 12 {
		t.Fatalf("explicit ttd should win, got %v", got)
	}

	derived := Sample{TimeUnixNs: 1_000_000, DisruptionTimeUnixNs: i64(51_000_000)}
	if got := ResolveTimeToDisruption(derived); got != 50 {
		t.Fatalf("expected 50ms, got %v", got)
	}

	if got := ResolveTimeToDisruption(Sample{}); !math.IsInf(got, 1) {
		t.Fatalf("no disruption info should resolve to +Inf, got %v", got)
	}
}

func TestNewTableRejectsEmpty(t *testing.T) {
	if _, err := NewTable(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewTable([]Sample{{TimeUnixNs: 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing shot id should be rejected, got %v", err)
	}
}

func TestSetColumnLengthMismatch(t *testing.T) {
	table, err := NewTable([]Sample{{ShotID: "a", TimeUnixNs: 1}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if err := table.SetColumn("x", []float64{1, 2}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
	if err := table.SetColumn("x", []float64{1}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if cols := table.Columns(); len(cols) != 1 || cols[0] != "x" {
		t.Fatalf("unexpected columns %v", cols)
	}
}

func TestSubsetKeepsShotRanges(t *testing.T) {
	table, err := NewTable([]Sample{
		{ShotID: "a", TimeUnixNs: 1, Channels: map[string]float64{"ip": 1}},
		{ShotID: "b", TimeUnixNs: 1, Channels: map[string]float64{"ip": 2}},
		{ShotID: "b", TimeUnixNs: 2, Channels: map[string]float64{"ip": 3}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	sub := table.Subset([]string{"b"})
	if sub.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", sub.Len())
	}
	shots := sub.Shots()
	if len(shots) != 1 || shots[0].Start != 0 || shots[0].End != 2 {
		t.Fatalf("unexpected shot ranges %+v", shots)
	}
	ip, _ := sub.Column("ip")
	if ip[0] != 2 || ip[1] != 3 {
		t.Fatalf("unexpected ip %v", ip)
	}
}
