// Package export writes pipeline artifacts: feature tables, per-horizon JSON
// records, a Markdown summary and PNG charts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"fusionguard/internal/telemetry"
)

// WriteTableCSV writes shot_id, time_unix_ns, time_to_disruption_ms and the
// given columns. maxRows > 0 downsamples evenly.
func WriteTableCSV(path string, table *telemetry.Table, columns []string, maxRows int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	cols := make([][]float64, len(columns))
	for j, name := range columns {
		col, ok := table.Column(name)
		if !ok {
			return fmt.Errorf("export csv: unknown column %q: %w", name, telemetry.ErrInvalidInput)
		}
		cols[j] = col
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"shot_id", "time_unix_ns", "time_to_disruption_ms"}, columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	shotIDs, times, ttd := table.ShotIDs(), table.Times(), table.TimeToDisruption()
	record := make([]string, len(header))
	for _, i := range downsampleIndices(table.Len(), maxRows) {
		record[0] = shotIDs[i]
		record[1] = strconv.FormatInt(times[i], 10)
		record[2] = formatFloat(ttd[i])
		for j, col := range cols {
			record[3+j] = formatFloat(col[i])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

func downsampleIndices(n, max int) []int {
	if max <= 0 || n <= max {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if max == 1 {
		return []int{0}
	}

	out := make([]int, 0, max)
	step := float64(n-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= n {
			idx = n - 1
		}
		out = append(out, idx)
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
