package export

import (
	"fmt"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"

	"fusionguard/internal/evaluation"
)

// WriteROCPNG renders a ROC curve with the chance diagonal.
func WriteROCPNG(path string, roc evaluation.ROC, horizonMs int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if len(roc.FPR) < 2 {
		return fmt.Errorf("roc chart: need at least two points, got %d", len(roc.FPR))
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	unit := chart.Range(&chart.ContinuousRange{Min: 0, Max: 1})
	graph := chart.Chart{
		Title:  fmt.Sprintf("ROC h%dms (AUC %.3f)", horizonMs, roc.AUC()),
		Width:  800,
		Height: 800,
		XAxis: chart.XAxis{
			Name:           "False positive rate",
			Range:          unit,
			ValueFormatter: rateFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "True positive rate",
			Range:          unit,
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Model",
				XValues: roc.FPR,
				YValues: roc.TPR,
			},
			chart.ContinuousSeries{
				Name:    "Chance",
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style: chart.Style{
					StrokeDashArray: []float64{5, 5},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// WriteReliabilityPNG renders observed accuracy against mean confidence for
// every non-empty bin.
func WriteReliabilityPNG(path string, bins []evaluation.Bin, horizonMs int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	var conf, acc []float64
	for _, b := range bins {
		if b.Count == 0 {
			continue
		}
		conf = append(conf, b.Confidence)
		acc = append(acc, b.Accuracy)
	}
	if len(conf) < 2 {
		// a single point cannot be drawn as a line
		conf = append(conf, conf...)
		acc = append(acc, acc...)
	}
	if len(conf) == 0 {
		return fmt.Errorf("reliability chart: no populated bins")
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	unit := chart.Range(&chart.ContinuousRange{Min: 0, Max: 1})
	graph := chart.Chart{
		Title:  fmt.Sprintf("Reliability h%dms", horizonMs),
		Width:  800,
		Height: 800,
		XAxis: chart.XAxis{
			Name:           "Mean predicted probability",
			Range:          unit,
			ValueFormatter: rateFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Observed frequency",
			Range:          unit,
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Model",
				XValues: conf,
				YValues: acc,
				Style: chart.Style{
					DotWidth: 4,
				},
			},
			chart.ContinuousSeries{
				Name:    "Perfect",
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
				Style: chart.Style{
					StrokeDashArray: []float64{5, 5},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
