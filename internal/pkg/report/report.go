/*
report.go Shapes raw solver output into reportable aggregates and console
tables: per-entity tables for a single steady-state solve, summary totals
with the power-balance residual, and per-run statistics for a transient
series.
*/

package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/transient"
)

// Summary carries system-level aggregates of one steady-state solve. The
// balance residual (generation − load − losses) is expected to sit within
// solver tolerance of zero.
type Summary struct {
	TotalGenMW    float64
	TotalGenMVAr  float64
	TotalLoadMW   float64
	TotalLoadMVAr float64
	TotalLossMW   float64
	BalanceMW     float64
	MinVmPu       float64
	MaxVmPu       float64
}

// Summarize computes the aggregates for a solve result.
func Summarize(res *powerflow.Result) Summary {
	s := Summary{MinVmPu: math.Inf(1), MaxVmPu: math.Inf(-1)}

	s.TotalGenMW = res.Slack.PMW
	s.TotalGenMVAr = res.Slack.QMVAr
	for _, g := range res.Generators {
		s.TotalGenMW += g.PMW
		s.TotalGenMVAr += g.QMVAr
	}
	for _, l := range res.Loads {
		s.TotalLoadMW += l.PMW
		s.TotalLoadMVAr += l.QMVAr
	}
	for _, br := range res.Branches {
		s.TotalLossMW += br.LossMW
	}
	for _, b := range res.Buses {
		s.MinVmPu = math.Min(s.MinVmPu, b.VmPu)
		s.MaxVmPu = math.Max(s.MaxVmPu, b.VmPu)
	}
	s.BalanceMW = s.TotalGenMW - s.TotalLoadMW - s.TotalLossMW
	return s
}

// SeriesStats aggregates a transient run: voltage envelope per bus, held
// step count, and the deepest voltage seen at a chosen bus.
type SeriesStats struct {
	Steps       int
	HeldSteps   int
	MinVmPu     []float64 // by bus order
	MaxVmPu     []float64
	FaultDipPu  float64 // lowest voltage at the fault bus over the run
	FaultBusPos int
}

// Stats computes per-bus envelopes over a series. faultBusPos is the
// bus-order position of the faulted bus.
func Stats(s *transient.Series, faultBusPos int) SeriesStats {
	st := SeriesStats{Steps: len(s.Steps), HeldSteps: s.HeldSteps, FaultBusPos: faultBusPos}
	if len(s.Steps) == 0 {
		return st
	}

	nBus := len(s.Steps[0].Result.Buses)
	st.MinVmPu = make([]float64, nBus)
	st.MaxVmPu = make([]float64, nBus)
	for i := range st.MinVmPu {
		st.MinVmPu[i] = math.Inf(1)
		st.MaxVmPu[i] = math.Inf(-1)
	}

	for _, step := range s.Steps {
		for i, b := range step.Result.Buses {
			st.MinVmPu[i] = math.Min(st.MinVmPu[i], b.VmPu)
			st.MaxVmPu[i] = math.Max(st.MaxVmPu[i], b.VmPu)
		}
	}
	if faultBusPos >= 0 && faultBusPos < nBus {
		st.FaultDipPu = st.MinVmPu[faultBusPos]
	}
	return st
}

// WriteBusTable prints the solved bus operating points.
func WriteBusTable(w io.Writer, res *powerflow.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tNAME\tVM [pu]\tVA [deg]\tP [MW]\tQ [MVAr]")
	for _, b := range res.Buses {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.3f\t%.2f\t%.2f\n", b.BusID, b.Name, b.VmPu, b.VaDeg, b.PMW, b.QMVAr)
	}
	return tw.Flush()
}

// WriteBranchTable prints branch flows, losses and loading.
func WriteBranchTable(w io.Writer, res *powerflow.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRANCH\tFROM\tTO\tP FROM [MW]\tQ FROM [MVAr]\tP TO [MW]\tQ TO [MVAr]\tLOSS [MW]\tLOADING [%]")
	for _, br := range res.Branches {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.4f\t%.1f\n",
			br.Name, br.From, br.To, br.PFromMW, br.QFromMVAr, br.PToMW, br.QToMVAr, br.LossMW, br.LoadingPct)
	}
	return tw.Flush()
}

// WriteGeneratorTable prints machine outputs including the slack.
func WriteGeneratorTable(w io.Writer, res *powerflow.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATOR\tBUS\tP [MW]\tQ [MVAr]\tVM [pu]")
	fmt.Fprintf(tw, "Slack\t%d\t%.2f\t%.2f\t\n", res.Slack.BusID, res.Slack.PMW, res.Slack.QMVAr)
	for _, g := range res.Generators {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.4f\n", g.Name, g.BusID, g.PMW, g.QMVAr, g.VmPu)
	}
	return tw.Flush()
}

// WriteLoadTable prints realized load consumption.
func WriteLoadTable(w io.Writer, res *powerflow.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOAD\tBUS\tP [MW]\tQ [MVAr]")
	for _, l := range res.Loads {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", l.Name, l.BusID, l.PMW, l.QMVAr)
	}
	return tw.Flush()
}

// WriteSummary prints system totals and the balance residual.
func WriteSummary(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total generation\t%.2f MW\t%.2f MVAr\n", s.TotalGenMW, s.TotalGenMVAr)
	fmt.Fprintf(tw, "Total load\t%.2f MW\t%.2f MVAr\n", s.TotalLoadMW, s.TotalLoadMVAr)
	fmt.Fprintf(tw, "Total losses\t%.4f MW\t\n", s.TotalLossMW)
	fmt.Fprintf(tw, "Balance residual\t%.6f MW\t\n", s.BalanceMW)
	fmt.Fprintf(tw, "Voltage band\t%.4f - %.4f pu\t\n", s.MinVmPu, s.MaxVmPu)
	return tw.Flush()
}
