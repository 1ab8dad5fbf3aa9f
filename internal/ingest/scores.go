package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"fusionguard/internal/telemetry"
)

const (
	colScore = "score"
	colLabel = "label"
)

// Scores is a batch of raw model scores with their ground truth. TTD and
// Shots are optional and enable the lead-time metric.
type Scores struct {
	Scores []float64
	Labels []bool
	TTD    []float64
	Shots  []string
}

// Len returns the number of rows.
func (s Scores) Len() int { return len(s.Scores) }

// ReadScores decodes a CSV with score and label columns and optional
// shot_id and time_to_disruption_ms columns. Labels accept 0/1 or true/false.
func ReadScores(r io.Reader) (Scores, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Scores{}, fmt.Errorf("read scores header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	scoreIdx, ok := index[colScore]
	if !ok {
		return Scores{}, fmt.Errorf("scores header: missing %s column: %w", colScore, telemetry.ErrInvalidInput)
	}
	labelIdx, ok := index[colLabel]
	if !ok {
		return Scores{}, fmt.Errorf("scores header: missing %s column: %w", colLabel, telemetry.ErrInvalidInput)
	}
	shotIdx, hasShots := index[colShotID]
	ttdIdx, hasTTD := index[colTTDMs]
	if !hasTTD {
		ttdIdx, hasTTD = index[colTTD]
	}

	var out Scores
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Scores{}, fmt.Errorf("read scores line %d: %w", line, err)
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(record[scoreIdx]), 64)
		if err != nil {
			return Scores{}, fmt.Errorf("scores line %d: parse %s: %w", line, colScore, telemetry.ErrInvalidInput)
		}
		label, err := parseLabel(record[labelIdx])
		if err != nil {
			return Scores{}, fmt.Errorf("scores line %d: %w", line, err)
		}
		out.Scores = append(out.Scores, score)
		out.Labels = append(out.Labels, label)

		if hasShots {
			out.Shots = append(out.Shots, strings.TrimSpace(record[shotIdx]))
		}
		if hasTTD {
			ttd := math.Inf(1)
			if raw := strings.TrimSpace(record[ttdIdx]); raw != "" {
				if ttd, err = strconv.ParseFloat(raw, 64); err != nil {
					return Scores{}, fmt.Errorf("scores line %d: parse %s: %w", line, colTTDMs, telemetry.ErrInvalidInput)
				}
			}
			out.TTD = append(out.TTD, ttd)
		}
	}

	if out.Len() == 0 {
		return Scores{}, fmt.Errorf("scores: no rows: %w", telemetry.ErrInvalidInput)
	}
	return out, nil
}

// WriteScores encodes a batch in the layout ReadScores accepts. Scores are
// written as given; training runs persist uncalibrated decision-function values.
func WriteScores(w io.Writer, s Scores) error {
	writer := csv.NewWriter(w)
	header := []string{colScore, colLabel}
	if s.Shots != nil {
		header = append(header, colShotID)
	}
	if s.TTD != nil {
		header = append(header, colTTDMs)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write scores header: %w", err)
	}

	row := make([]string, 0, len(header))
	for i, score := range s.Scores {
		label := "0"
		if s.Labels[i] {
			label = "1"
		}
		row = append(row[:0], strconv.FormatFloat(score, 'g', -1, 64), label)
		if s.Shots != nil {
			row = append(row, s.Shots[i])
		}
		if s.TTD != nil {
			row = append(row, strconv.FormatFloat(s.TTD[i], 'g', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write scores row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseLabel(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "true":
		return true, nil
	case "0", "0.0", "false":
		return false, nil
	}
	return false, fmt.Errorf("parse %s %q: %w", colLabel, raw, telemetry.ErrInvalidInput)
}
