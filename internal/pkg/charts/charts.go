/*
charts.go PNG renditions of the study results: a bus voltage profile for a
steady-state solve, and voltage / generation / loading trajectories for a
transient run with the fault window marked.
*/

package charts

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/transient"
)

// VoltageProfile renders the per-bus voltage magnitudes of one solve as a
// bar chart with the nominal band marked.
func VoltageProfile(res *powerflow.Result, path string) error {
	p := plot.New()
	p.Title.Text = "Bus Voltage Profile"
	p.X.Label.Text = "Bus"
	p.Y.Label.Text = "Voltage [pu]"

	values := make(plotter.Values, len(res.Buses))
	labels := make([]string, len(res.Buses))
	for i, b := range res.Buses {
		values[i] = b.VmPu
		labels[i] = fmt.Sprintf("%d", b.BusID)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(labels...)

	for _, band := range []float64{0.95, 1.0, 1.05} {
		line := horizontal(band, float64(len(res.Buses)))
		l, err := plotter.NewLine(line)
		if err != nil {
			return err
		}
		l.LineStyle.Width = vg.Points(0.5)
		p.Add(l)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// SeriesVoltages renders every bus's voltage magnitude over simulated time.
func SeriesVoltages(s *transient.Series, path string) error {
	p := plot.New()
	p.Title.Text = "Bus Voltage Dynamics"
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Voltage [pu]"

	times := s.Times()
	if len(s.Steps) == 0 {
		return p.Save(10*vg.Inch, 4*vg.Inch, path)
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)
	for pos, b := range s.Steps[0].Result.Buses {
		xys := make(plotter.XYs, len(times))
		vm := s.BusVoltage(pos)
		for i := range times {
			xys[i].X = times[i]
			xys[i].Y = vm[i]
			yMin, yMax = span(yMin, yMax, vm[i])
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(pos)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("Bus %d", b.BusID), l)
	}

	if err := addFaultWindow(p, s, yMin, yMax); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// SeriesGeneration renders machine active power over simulated time.
func SeriesGeneration(s *transient.Series, path string) error {
	p := plot.New()
	p.Title.Text = "Generator Output Dynamics"
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Active Power [MW]"

	times := s.Times()
	if len(s.Steps) == 0 {
		return p.Save(10*vg.Inch, 4*vg.Inch, path)
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)

	// Slack output first, then the dispatched machines.
	slack := make(plotter.XYs, len(times))
	for i, step := range s.Steps {
		slack[i].X = times[i]
		slack[i].Y = step.Result.Slack.PMW
		yMin, yMax = span(yMin, yMax, slack[i].Y)
	}
	sl, err := plotter.NewLine(slack)
	if err != nil {
		return err
	}
	sl.LineStyle.Color = plotutil.Color(0)
	p.Add(sl)
	p.Legend.Add("Slack", sl)

	for g := range s.Steps[0].Result.Generators {
		xys := make(plotter.XYs, len(times))
		for i, step := range s.Steps {
			xys[i].X = times[i]
			xys[i].Y = step.Result.Generators[g].PMW
			yMin, yMax = span(yMin, yMax, xys[i].Y)
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(g + 1)
		p.Add(l)
		p.Legend.Add(s.Steps[0].Result.Generators[g].Name, l)
	}

	if err := addFaultWindow(p, s, yMin, yMax); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// SeriesLoadings renders branch loading percentages over simulated time.
func SeriesLoadings(s *transient.Series, path string) error {
	p := plot.New()
	p.Title.Text = "Branch Loading Dynamics"
	p.X.Label.Text = "Time [s]"
	p.Y.Label.Text = "Loading [%]"

	times := s.Times()
	if len(s.Steps) == 0 {
		return p.Save(10*vg.Inch, 4*vg.Inch, path)
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)
	for br := range s.Steps[0].Result.Branches {
		xys := make(plotter.XYs, len(times))
		for i, step := range s.Steps {
			xys[i].X = times[i]
			xys[i].Y = step.Result.Branches[br].LoadingPct
			yMin, yMax = span(yMin, yMax, xys[i].Y)
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(br)
		p.Add(l)
		p.Legend.Add(s.Steps[0].Result.Branches[br].Name, l)
	}

	if err := addFaultWindow(p, s, yMin, yMax); err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// addFaultWindow draws vertical markers at fault onset and clearing,
// spanning the given value range.
func addFaultWindow(p *plot.Plot, s *transient.Series, yMin, yMax float64) error {
	onset := s.Config.FaultTime
	clear := s.Config.FaultTime + s.Config.FaultDuration
	for _, t := range []float64{onset, clear} {
		marker, err := plotter.NewLine(plotter.XYs{{X: t, Y: yMin}, {X: t, Y: yMax}})
		if err != nil {
			return err
		}
		marker.LineStyle.Width = vg.Points(1)
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
	}
	return nil
}

// span widens a running [min, max] envelope with a new sample.
func span(min, max, v float64) (float64, float64) {
	if v < min {
		min = v
	}
	if v > max {
		max = v
	}
	return min, max
}

func horizontal(y, xMax float64) plotter.XYs {
	return plotter.XYs{{X: -0.5, Y: y}, {X: xMax - 0.5, Y: y}}
}
