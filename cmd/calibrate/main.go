// Command calibrate runs the validation cohort across several seeds and
// reports how often each calibration target passes. Used when tuning class
// distributions against the Seven-UP outcome set.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/maculab/amdsim/internal/cohort"
	"github.com/maculab/amdsim/internal/config"
	"github.com/maculab/amdsim/internal/engine"
	"github.com/maculab/amdsim/internal/entropy"
	"github.com/maculab/amdsim/internal/validate"
)

func main() {
	configPath := flag.String("config", "simulation.yaml", "simulation configuration file")
	replicates := flag.Int("replicates", 5, "number of runs with distinct seeds")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	passes := make(map[string]int)
	actuals := make(map[string][]float64)

	for rep := 0; rep < *replicates; rep++ {
		run := *cfg
		run.Seed = cfg.Seed + int64(rep)

		report, err := runOnce(&run)
		if err != nil {
			fmt.Fprintf(os.Stderr, "replicate %d: %v\n", rep, err)
			os.Exit(1)
		}
		for _, r := range report.Results {
			if r.Pass {
				passes[r.Name]++
			}
			actuals[r.Name] = append(actuals[r.Name], r.Actual)
		}
	}

	fmt.Printf("calibration over %d replicates of %s patients\n",
		*replicates, humanize.Comma(int64(cfg.CohortSize)))
	for _, t := range cfg.Validation.Targets {
		vals := actuals[t.Name]
		lo, hi := vals[0], vals[0]
		for _, v := range vals {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		fmt.Printf("  %-20s expected %8.3f ± %.3f   observed [%8.3f, %8.3f]   pass %d/%d\n",
			t.Name, t.Expected, t.Tolerance, lo, hi, passes[t.Name], *replicates)
	}
}

func runOnce(cfg *config.Config) (*validate.Report, error) {
	streams := entropy.New(cfg.Seed)

	enroller, err := cohort.NewEnroller(cfg, streams)
	if err != nil {
		return nil, err
	}
	patients, err := enroller.EnrollCohort(cfg.CohortSize)
	if err != nil {
		return nil, err
	}

	sim := engine.NewSimulation(cfg, engine.New(cfg, streams), engine.NewFixedInterval(cfg.Treatment), patients)
	sim.Run()

	validator, err := validate.New(cfg.Validation)
	if err != nil {
		return nil, err
	}
	report, err := validator.Run(patients)
	if err != nil {
		var insufficient *config.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return nil, err
		}
		slog.Warn("small population", "warning", insufficient.Error())
	}
	return report, nil
}
