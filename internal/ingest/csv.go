package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"fusionguard/internal/telemetry"
)

const (
	colShotID         = "shot_id"
	colTimeUnixNs     = "time_unix_ns"
	colTimeMs         = "time_ms"
	colTimeSeconds    = "time"
	colTTDMs          = "time_to_disruption_ms"
	colTTD            = "time_to_disruption"
	colDisruptionTime = "disruption_time_unix_ns"
)

var reservedColumns = map[string]struct{}{
	colShotID: {}, colTimeUnixNs: {}, colTimeMs: {}, colTimeSeconds: {},
	colTTDMs: {}, colTTD: {}, colDisruptionTime: {},
}

type csvLayout struct {
	shotID     int
	time       int
	timeScale  float64
	ttd        int
	disruption int
	channels   map[string]int
}

// ReadCSV decodes samples from a header-first CSV stream. The time column is
// time_unix_ns, or time_ms / time (seconds) which are converted to
// nanoseconds. Empty cells are missing values.
func ReadCSV(r io.Reader) ([]telemetry.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv: empty input: %w", telemetry.ErrInvalidInput)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	layout, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	var samples []telemetry.Sample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		sample, err := layout.decode(record)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func parseHeader(header []string) (csvLayout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	layout := csvLayout{shotID: -1, time: -1, ttd: -1, disruption: -1, channels: make(map[string]int)}
	var ok bool
	if layout.shotID, ok = index[colShotID]; !ok {
		return csvLayout{}, fmt.Errorf("csv header: missing %s column: %w", colShotID, telemetry.ErrInvalidInput)
	}

	switch {
	case has(index, colTimeUnixNs):
		layout.time, layout.timeScale = index[colTimeUnixNs], 1
	case has(index, colTimeMs):
		layout.time, layout.timeScale = index[colTimeMs], 1e6
	case has(index, colTimeSeconds):
		layout.time, layout.timeScale = index[colTimeSeconds], 1e9
	default:
		return csvLayout{}, fmt.Errorf("csv header: no time column (expected %s, %s or %s): %w", colTimeUnixNs, colTimeMs, colTimeSeconds, telemetry.ErrInvalidInput)
	}

	if i, ok := index[colTTDMs]; ok {
		layout.ttd = i
	} else if i, ok := index[colTTD]; ok {
		layout.ttd = i
	}
	if i, ok := index[colDisruptionTime]; ok {
		layout.disruption = i
	}

	for name, i := range index {
		if _, reserved := reservedColumns[name]; reserved || name == "" {
			continue
		}
		layout.channels[name] = i
	}
	return layout, nil
}

func has(index map[string]int, name string) bool {
	_, ok := index[name]
	return ok
}

func (l csvLayout) decode(record []string) (telemetry.Sample, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	s := telemetry.Sample{ShotID: cell(l.shotID), Channels: make(map[string]float64, len(l.channels))}

	rawTime := cell(l.time)
	if l.timeScale == 1 {
		ns, err := strconv.ParseInt(rawTime, 10, 64)
		if err != nil {
			// tolerate float-formatted nanoseconds
			f, ferr := strconv.ParseFloat(rawTime, 64)
			if ferr != nil {
				return telemetry.Sample{}, fmt.Errorf("parse time %q: %w", rawTime, telemetry.ErrInvalidInput)
			}
			ns = int64(f)
		}
		s.TimeUnixNs = ns
	} else {
		f, err := strconv.ParseFloat(rawTime, 64)
		if err != nil {
			return telemetry.Sample{}, fmt.Errorf("parse time %q: %w", rawTime, telemetry.ErrInvalidInput)
		}
		s.TimeUnixNs = int64(math.Round(f * l.timeScale))
	}

	if raw := cell(l.ttd); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return telemetry.Sample{}, fmt.Errorf("parse time to disruption %q: %w", raw, telemetry.ErrInvalidInput)
		}
		s.TimeToDisruptionMs = &v
	}
	if raw := cell(l.disruption); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return telemetry.Sample{}, fmt.Errorf("parse disruption time %q: %w", raw, telemetry.ErrInvalidInput)
		}
		s.DisruptionTimeUnixNs = &v
	}

	for name, i := range l.channels {
		raw := cell(i)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return telemetry.Sample{}, fmt.Errorf("channel %s: parse %q: %w", name, raw, telemetry.ErrInvalidInput)
		}
		if !math.IsNaN(v) {
			s.Channels[name] = v
		}
	}
	return s, nil
}

// WriteCSV encodes samples with a time_unix_ns column and one column per
// channel, sorted by name.
func WriteCSV(w io.Writer, samples []telemetry.Sample) error {
	channelSet := make(map[string]struct{})
	withDisruption := false
	for _, s := range samples {
		for name := range s.Channels {
			channelSet[name] = struct{}{}
		}
		if s.DisruptionTimeUnixNs != nil {
			withDisruption = true
		}
	}
	channels := make([]string, 0, len(channelSet))
	for name := range channelSet {
		channels = append(channels, name)
	}
	sort.Strings(channels)

	writer := csv.NewWriter(w)
	header := []string{colShotID, colTimeUnixNs}
	header = append(header, channels...)
	if withDisruption {
		header = append(header, colDisruptionTime)
	}
	header = append(header, colTTDMs)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, s := range samples {
		row = row[:0]
		row = append(row, s.ShotID, strconv.FormatInt(s.TimeUnixNs, 10))
		for _, name := range channels {
			v, ok := s.Channels[name]
			if !ok || math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if withDisruption {
			if s.DisruptionTimeUnixNs != nil {
				row = append(row, strconv.FormatInt(*s.DisruptionTimeUnixNs, 10))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, strconv.FormatFloat(telemetry.ResolveTimeToDisruption(s), 'g', -1, 64))
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
