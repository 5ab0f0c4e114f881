package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/golang/glog"

	"github.com/wildstyl3r/discus/internal/config"
	"github.com/wildstyl3r/discus/internal/model"
)

func main() {
	var configFileName = flag.String("input", "nickel_plate", "run configuration in toml format")
	var threads = flag.Int("threads", runtime.NumCPU(), "number of spectra simulated in parallel")
	var quiet = flag.Bool("quiet", false, "do not report progress")
	dataFlags := model.NewDataFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.LoadConfig(*configFileName)
	if err != nil {
		glog.Exitf("unable to load config: %v", err)
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			glog.Exitf("unable to create output directory: %v", err)
		}
	}
	dataFlags.SetOutputPath(cfg.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for _, runName := range cfg.RunNames() {
		parameters, err := cfg.RunParameters(runName)
		if err != nil {
			glog.Errorf("skipping run %s: %v", runName, err)
			continue
		}
		parameters.SetThreads(*threads)

		m, err := model.NewModel(parameters)
		if err != nil {
			glog.Errorf("skipping run %s: %v", runName, err)
			continue
		}
		if !*quiet {
			m.Progress = func(done, total int) {
				fmt.Fprintf(os.Stderr, "\r%s: %d/%d", runName, done, total)
			}
		}

		start := time.Now()
		result, err := m.Run(ctx)
		if !*quiet {
			fmt.Fprint(os.Stderr, "\n")
		}
		cancelled := errors.Is(err, model.ErrCancelled)
		switch {
		case cancelled:
			glog.Warningf("run %s: %v; saving partial results", runName, err)
		case err != nil:
			glog.Errorf("run %s failed: %v", runName, err)
			continue
		default:
			glog.Infof("run %s finished in %v", runName, time.Since(start).Round(time.Millisecond))
		}

		if err := model.NewDataExtractor(m, result).Save(context.Background(), runName, dataFlags); err != nil {
			glog.Errorf("run %s: %v", runName, err)
		}
		if cancelled {
			break
		}
	}
}
