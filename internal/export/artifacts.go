package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fusionguard/internal/calibration"
	"fusionguard/internal/evaluation"
	"fusionguard/internal/model"
)

// Artifact file names inside a horizon directory.
const (
	CalibrationFile  = "calibration.json"
	MetricsFile      = "metrics.json"
	FeatureOrderFile = "feature_order.json"
	ModelParamsFile  = "model_params.json"
	ReportFile       = "REPORT.md"
	ROCChartFile     = "roc.png"
	ReliabilityFile  = "reliability.png"
)

// HorizonArtifacts is everything produced for one prediction horizon.
type HorizonArtifacts struct {
	HorizonMs   int
	Calibration calibration.Record
	Metrics     evaluation.Report
	Features    []string
	Model       *model.Params
	// Info is rendered into the report's dataset section.
	Info map[string]string
}

type featureOrder struct {
	Features []string `json:"features"`
}

// HorizonDir returns the artifact directory of a horizon, e.g. <root>/h50.
func HorizonDir(root string, horizonMs int) string {
	return filepath.Join(root, fmt.Sprintf("h%d", horizonMs))
}

// WriteHorizon writes the JSON artifacts and the Markdown report of a horizon
// and returns its directory.
func WriteHorizon(root string, a HorizonArtifacts) (string, error) {
	dir := HorizonDir(root, a.HorizonMs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if err := WriteJSON(filepath.Join(dir, CalibrationFile), a.Calibration); err != nil {
		return "", err
	}
	if err := WriteJSON(filepath.Join(dir, MetricsFile), a.Metrics); err != nil {
		return "", err
	}
	if err := WriteJSON(filepath.Join(dir, FeatureOrderFile), featureOrder{Features: a.Features}); err != nil {
		return "", err
	}
	if a.Model != nil {
		if err := WriteJSON(filepath.Join(dir, ModelParamsFile), a.Model); err != nil {
			return "", err
		}
	}
	if err := WriteReport(filepath.Join(dir, ReportFile), a.Metrics, a.Info); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteReport renders a short Markdown summary of a metrics report.
func WriteReport(path string, report evaluation.Report, info map[string]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# FusionGuard Training Report\n\n")
	b.WriteString("## Metrics\n")
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"roc_auc", report.ROCAUC},
		{"pr_auc", report.PRAUC},
		{"recall_at_fpr", report.RecallAtFPR},
		{"mean_lead_time_ms", report.MeanLeadTimeMs},
		{"brier_score", report.BrierScore},
		{"calibration_error", report.CalibrationError},
	} {
		fmt.Fprintf(&b, "- **%s**: %.4f\n", m.name, m.value)
	}

	if len(info) > 0 {
		b.WriteString("\n## Dataset Information\n")
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, info[k])
		}
	}

	b.WriteString("\n## Notes\n")
	b.WriteString("- Metrics computed on the held-out shots\n")
	b.WriteString("- Lead time is measured from the alert closest to each positive row, within its shot\n")
	b.WriteString("- Calibration error uses 10 bins (lower, upper]; probability 0 falls in no bin\n")
	b.WriteString("- scores.csv holds raw decision-function scores; calibration.json maps them to probabilities\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
