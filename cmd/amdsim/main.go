// Command amdsim runs an AMD treatment-protocol cohort simulation from a YAML
// configuration: enrollment, fortnightly progression to the horizon,
// validation against calibration targets, persistence, and a trajectory chart.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/maculab/amdsim/internal/api"
	"github.com/maculab/amdsim/internal/cohort"
	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/engine"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/persistence"
	"github.com/maculab/amdsim/internal/report"
	"github.com/maculab/amdsim/internal/validate"
)

func main() {
	configPath := flag.String("config", "simulation.yaml", "simulation configuration file")
	dbPath := flag.String("db", "data/amdsim.db", "results database path")
	chartPath := flag.String("chart", "", "write a mean-trajectory PNG to this path")
	apiPort := flag.Int("api", 0, "serve the read-only API on this port after the run (0 = disabled)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	streams := entropy.New(cfg.Seed)

	enroller, err := cohort.NewEnroller(cfg, streams)
	if err != nil {
		slog.Error("failed to build enroller", "error", err)
		os.Exit(1)
	}

	patients, err := enroller.EnrollCohort(cfg.CohortSize)
	if err != nil {
		slog.Error("enrollment failed", "error", err)
		os.Exit(1)
	}
	slog.Info("cohort enrolled",
		"patients", humanize.Comma(int64(len(patients))),
		"classes", len(cfg.TrajectoryClasses),
	)

	eng := engine.New(cfg, streams)
	schedule := engine.NewFixedInterval(cfg.Treatment)
	sim := engine.NewSimulation(cfg, eng, schedule, patients)
	sim.Run()

	validator, err := validate.New(cfg.Validation)
	if err != nil {
		slog.Error("invalid validation targets", "error", err)
		os.Exit(1)
	}
	rep, err := validator.Run(patients)
	if err != nil {
		var insufficient *config.InsufficientDataError
		if errors.As(err, &insufficient) {
			slog.Warn("validation ran on a small population", "warning", insufficient.Error())
		} else {
			slog.Error("validation failed", "error", err)
			os.Exit(1)
		}
	}
	for _, r := range rep.Results {
		slog.Info("validation target",
			"name", r.Name,
			"expected", r.Expected,
			"tolerance", r.Tolerance,
			"actual", r.Actual,
			"pass", r.Pass,
		)
	}
	slog.Info("validation summary", "pass", rep.Pass, "population", rep.Population)

	os.MkdirAll("data", 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.SaveRun(sim); err != nil {
		slog.Error("failed to save run", "error", err)
		os.Exit(1)
	}
	if err := db.SaveValidation(sim.RunID, rep); err != nil {
		slog.Error("failed to save validation report", "error", err)
		os.Exit(1)
	}
	slog.Info("run saved", "run_id", sim.RunID, "db", *dbPath)

	if *chartPath != "" {
		if err := report.RenderTrajectory(patients, cfg.HorizonFortnights, *chartPath); err != nil {
			slog.Error("failed to render chart", "error", err)
			os.Exit(1)
		}
		slog.Info("chart written", "path", *chartPath)
	}

	if *apiPort > 0 {
		server := &api.Server{Sim: sim, Report: rep, Port: *apiPort}
		server.Start()
		select {} // serve until interrupted
	}
}
