// Package report renders cohort outcome figures.
package report

import (
	"fmt"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/stat"

	"github.com/maculab/amdsim/internal/patient"
)

// MeanTrajectory computes the cohort mean and standard deviation of vision at
// each fortnight. Patients without a visit at a given fortnight (discontinued)
// contribute their last observed value carried forward.
func MeanTrajectory(cohort []*patient.State, horizon int) (mean, sd []float64) {
	mean = make([]float64, horizon+1)
	sd = make([]float64, horizon+1)

	values := make([]float64, 0, len(cohort))
	for t := 0; t <= horizon; t++ {
		values = values[:0]
		for _, p := range cohort {
			if t == 0 {
				values = append(values, p.BaselineVision)
				continue
			}
			if v, ok := p.VisionAt(t); ok {
				values = append(values, v)
			} else {
				values = append(values, p.BaselineVision)
			}
		}
		mean[t] = stat.Mean(values, nil)
		sd[t] = stat.StdDev(values, nil)
	}
	return mean, sd
}

// RenderTrajectory writes a mean ± SD vision-over-time chart to a PNG file.
func RenderTrajectory(cohort []*patient.State, horizon int, path string) error {
	mean, sd := MeanTrajectory(cohort, horizon)

	xs := make([]float64, horizon+1)
	upper := make([]float64, horizon+1)
	lower := make([]float64, horizon+1)
	for t := 0; t <= horizon; t++ {
		xs[t] = float64(t) / 26.0 // years
		upper[t] = mean[t] + sd[t]
		lower[t] = mean[t] - sd[t]
	}

	graph := chart.Chart{
		Title: "Mean visual acuity over time",
		XAxis: chart.XAxis{Name: "Years"},
		YAxis: chart.YAxis{Name: "ETDRS letters"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "mean + SD",
				XValues: xs,
				YValues: upper,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("9ecae1")},
			},
			chart.ContinuousSeries{
				Name:    "mean",
				XValues: xs,
				YValues: mean,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("3182bd"), StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "mean - SD",
				XValues: xs,
				YValues: lower,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("9ecae1")},
			},
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
