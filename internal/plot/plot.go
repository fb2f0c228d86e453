// Package plot renders the validation diagnostics (confusion matrix and ROC
// curve) as PNG artifacts for the experiment tracker.
package plot

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"census-pipeline/internal/metrics"
)

// ConfusionMatrixPNG renders the four matrix cells as a labeled heatmap and
// writes the image to path, replacing any existing file.
func ConfusionMatrixPNG(path string, cm metrics.ConfusionMatrix) error {
	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"
	p.X.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0.5, Label: "0"}, {Value: 1.5, Label: "1"}})
	p.Y.Tick.Marker = plot.ConstantTicks([]plot.Tick{{Value: 0.5, Label: "0"}, {Value: 1.5, Label: "1"}})

	cells := []struct {
		x, y  float64
		count int
	}{
		{0, 0, cm.TrueNegative},
		{1, 0, cm.FalsePositive},
		{0, 1, cm.FalseNegative},
		{1, 1, cm.TruePositive},
	}

	max := cm.TrueNegative
	for _, c := range cells {
		if c.count > max {
			max = c.count
		}
	}

	for _, c := range cells {
		shade := uint8(0)
		if max > 0 {
			shade = uint8(200 * c.count / max)
		}
		box, err := plotter.NewPolygon(cellOutline(c.x, c.y))
		if err != nil {
			return fmt.Errorf("building confusion matrix cell: %w", err)
		}
		box.Color = color.RGBA{R: 255 - shade, G: 255 - shade, B: 255, A: 255}
		box.LineStyle.Color = color.Black
		p.Add(box)

		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: c.x + 0.45, Y: c.y + 0.5}},
			Labels: []string{fmt.Sprintf("%d", c.count)},
		})
		if err != nil {
			return fmt.Errorf("building confusion matrix label: %w", err)
		}
		p.Add(label)
	}

	p.X.Min, p.X.Max = 0, 2
	p.Y.Min, p.Y.Max = 0, 2

	return save(p, path)
}

func cellOutline(x, y float64) plotter.XYs {
	return plotter.XYs{
		{X: x, Y: y},
		{X: x + 1, Y: y},
		{X: x + 1, Y: y + 1},
		{X: x, Y: y + 1},
	}
}

// ROCCurvePNG plots the ROC curve along with the chance diagonal and writes
// the image to path, replacing any existing file.
func ROCCurvePNG(path string, fpr, tpr []float64) error {
	if len(fpr) != len(tpr) {
		return fmt.Errorf("fpr and tpr differ in length: %d vs %d", len(fpr), len(tpr))
	}

	p := plot.New()
	p.Title.Text = "ROC Curve"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"

	curve := make(plotter.XYs, len(fpr))
	for i := range fpr {
		curve[i] = plotter.XY{X: fpr[i], Y: tpr[i]}
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return fmt.Errorf("building roc line: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	p.Add(line)

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return fmt.Errorf("building chance line: %w", err)
	}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	diag.Color = color.Gray{Y: 128}
	p.Add(diag)

	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	// plot.Save truncates, but remove first so a stale file never survives a
	// partial write.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale plot %s: %w", path, err)
	}
	if err := p.Save(6*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
