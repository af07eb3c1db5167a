package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"gridflow/internal/pkg/charts"
	"gridflow/internal/pkg/datastreams/mongodb"
	"gridflow/internal/pkg/datastreams/natshandler"
	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/powernet"
	"gridflow/internal/pkg/report"
	"gridflow/internal/pkg/telemetry"
	"gridflow/internal/pkg/transient"
	"gridflow/internal/pkg/ybus"
)

func main() {
	var (
		duration      = flag.Float64("duration", 10.0, "transient run length in seconds")
		timeStep      = flag.Float64("step", 0.01, "transient time step in seconds")
		faultTime     = flag.Float64("fault-time", 1.0, "fault onset in seconds")
		faultDuration = flag.Float64("fault-duration", 0.1, "fault window length in seconds")
		faultBus      = flag.Int("fault-bus", 5, "bus id targeted by the fault")
		faultScale    = flag.Float64("fault-scale", transient.DefaultFaultMultiplier, "fault load multiplier")
		noAmbient     = flag.Bool("no-ambient", false, "disable the sinusoidal load modulation")
		workers       = flag.Int("workers", 1, "concurrent step solves")
		skipTransient = flag.Bool("steady-only", false, "run only the steady-state solve")
		chartDir      = flag.String("charts", "", "directory for PNG charts (empty disables)")
		mongoConfig   = flag.String("mongo-config", "", "MongoDB archive config path (empty disables)")
		natsConfig    = flag.String("nats-config", "", "NATS stream config path (empty disables)")
		meterConfig   = flag.String("meter-config", "", "Modbus meter config path (empty disables)")
	)
	flag.Parse()

	log.Println("[Main] Building IEEE 9-bus model")
	net, err := powernet.IEEE9()
	if err != nil {
		log.Fatalf("[Main] model construction failed: %v", err)
	}

	log.Println("[Main] Assembling admittance matrix")
	y := ybus.Build(net)

	overrides := readMeters(*meterConfig)

	log.Println("[Main] Running steady-state power flow")
	solver := powerflow.NewSolver()
	res, err := solver.Solve(net, y, overrides)
	if err != nil {
		log.Fatalf("[Main] steady-state solve failed: %v", err)
	}
	printSteadyState(res)

	if *chartDir != "" {
		writeChart(charts.VoltageProfile(res, filepath.Join(*chartDir, "voltage_profile.png")), "voltage profile")
	}
	if *mongoConfig != "" {
		archiveResult(*mongoConfig, res)
	}
	if *skipTransient {
		return
	}

	log.Printf("[Main] Running transient study: fault at bus %d, t=%.2fs for %.2fs", *faultBus, *faultTime, *faultDuration)
	series, err := transient.Run(net, y, transient.Config{
		Duration:        *duration,
		TimeStep:        *timeStep,
		FaultTime:       *faultTime,
		FaultDuration:   *faultDuration,
		FaultBus:        *faultBus,
		FaultMultiplier: *faultScale,
		AmbientDisabled: *noAmbient,
		Workers:         *workers,
	})
	if err != nil {
		log.Fatalf("[Main] transient run failed: %v", err)
	}

	faultPos, _ := net.BusIndex(*faultBus)
	stats := report.Stats(series, faultPos)
	log.Printf("[Main] Transient complete: %d steps, %d held, fault-bus dip %.4f pu",
		stats.Steps, stats.HeldSteps, stats.FaultDipPu)

	if *chartDir != "" {
		writeChart(charts.SeriesVoltages(series, filepath.Join(*chartDir, "transient_voltages.png")), "transient voltages")
		writeChart(charts.SeriesGeneration(series, filepath.Join(*chartDir, "transient_generation.png")), "transient generation")
		writeChart(charts.SeriesLoadings(series, filepath.Join(*chartDir, "transient_loadings.png")), "transient loadings")
	}
	if *mongoConfig != "" {
		archiveSeries(*mongoConfig, series)
	}
	if *natsConfig != "" {
		streamSeries(*natsConfig, series)
	}
}

func printSteadyState(res *powerflow.Result) {
	log.Printf("[Main] Converged in %d iterations (mismatch %.2e pu, %s)", res.Iterations, res.Mismatch, res.Elapsed)
	report.WriteBusTable(os.Stdout, res)
	report.WriteGeneratorTable(os.Stdout, res)
	report.WriteBranchTable(os.Stdout, res)
	report.WriteLoadTable(os.Stdout, res)
	report.WriteSummary(os.Stdout, report.Summarize(res))
}

// readMeters returns live load overrides when a meter config is given, or
// nil for the base case.
func readMeters(configPath string) *powerflow.Overrides {
	if configPath == "" {
		return nil
	}
	poller, err := telemetry.New(configPath)
	if err != nil {
		log.Fatalf("[Main] meter config failed: %v", err)
	}
	ov, err := poller.ReadOverrides()
	if err != nil {
		log.Printf("[Main] meter poll failed, using model setpoints: %v", err)
		return nil
	}
	log.Printf("[Main] applying %d metered load overrides", len(ov.LoadP))
	return ov
}

func writeChart(err error, name string) {
	if err != nil {
		log.Printf("[Main] chart %s failed: %v", name, err)
	}
}

func archiveResult(configPath string, res *powerflow.Result) {
	handler, err := mongodb.New(configPath)
	if err != nil {
		log.Printf("[Mongo] config failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := handler.ArchiveResult(ctx, "steady-state", res); err != nil {
		log.Printf("[Mongo] archive failed: %v", err)
	}
}

func archiveSeries(configPath string, series *transient.Series) {
	handler, err := mongodb.New(configPath)
	if err != nil {
		log.Printf("[Mongo] config failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := handler.ArchiveSeries(ctx, "transient", series); err != nil {
		log.Printf("[Mongo] archive failed: %v", err)
	}
}

func streamSeries(configPath string, series *transient.Series) {
	handler, err := natshandler.New(configPath)
	if err != nil {
		log.Printf("[NATS client] config failed: %v", err)
		return
	}
	if err := handler.Connect(); err != nil {
		log.Printf("[NATS client] connect failed: %v", err)
		return
	}
	defer handler.Close()
	// Replay is paced by the handler's rate limit; no deadline, so every
	// step gets delivered.
	if err := handler.PublishSeries(context.Background(), series); err != nil {
		log.Printf("[NATS client] publish failed: %v", err)
	}
}
