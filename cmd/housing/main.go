// Command housing runs the housing price regression pipeline.
//
//	housing fetch   [-config file] [-url url] [-data-dir dir]
//	housing run     [-config file] [flags]
//	housing synth   [-rows n] [-seed s] [-out file]
//	housing prepare -preprocessor file -in file -out file
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
	"github.com/ezoic/housing/pipeline"
)

const usage = `usage: housing <command> [flags]

commands:
  fetch    download and extract the housing archive
  run      run the full pipeline and print the report
  synth    write a synthetic housing CSV
  prepare  apply a saved preprocessor to a CSV
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.LogError(err, "housing failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return herrors.NewConfigurationError("command", "missing", nil)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "fetch":
		return runFetch(ctx, rest, stdout, stderr)
	case "run":
		return runPipeline(ctx, rest, stdout, stderr)
	case "synth":
		return runSynth(rest, stdout, stderr)
	case "prepare":
		return runPrepare(rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return herrors.NewConfigurationError("command", "unknown", cmd)
	}
}

// runFlags are the overrides shared by fetch and run.
type runFlags struct {
	configPath   string
	dataDir      string
	url          string
	csvName      string
	fetch        bool
	testSize     float64
	seed         int64
	cvFolds      int
	nJobs        int
	scale        bool
	preprocessor string
	plot         string
	report       string
	logLevel     string
}

func (f *runFlags) register(fs *flag.FlagSet) {
	d := config.Default()
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.dataDir, "data-dir", d.Data.Dir, "dataset directory")
	fs.StringVar(&f.url, "url", d.Data.URL, "dataset archive URL")
	fs.StringVar(&f.csvName, "csv", d.Data.CSVName, "CSV file name inside the dataset directory")
	fs.BoolVar(&f.fetch, "fetch", d.Data.Fetch, "download the archive before loading")
	fs.Float64Var(&f.testSize, "test-size", d.Split.TestSize, "test fraction in (0, 1)")
	fs.Int64Var(&f.seed, "seed", d.Split.Seed, "split seed")
	fs.IntVar(&f.cvFolds, "cv", d.Search.CVFolds, "cross-validation folds")
	fs.IntVar(&f.nJobs, "n-jobs", d.Search.NJobs, "parallel fits, <= 0 uses every CPU")
	fs.BoolVar(&f.scale, "scale", d.Preprocess.Scale, "standardize the feature matrix")
	fs.StringVar(&f.preprocessor, "preprocessor", d.Output.PreprocessorPath, "where to save the fitted preprocessor")
	fs.StringVar(&f.plot, "plot", d.Output.PlotPath, "where to save the geographic scatter plot")
	fs.StringVar(&f.report, "report", d.Output.ReportPath, "where to save the text report")
	fs.StringVar(&f.logLevel, "log-level", d.LogLevel, "debug, info, warn or error")
}

// load reads the configuration file, if any, and applies the flags that
// were set explicitly on the command line.
func (f *runFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data-dir":
			cfg.Data.Dir = f.dataDir
		case "url":
			cfg.Data.URL = f.url
		case "csv":
			cfg.Data.CSVName = f.csvName
		case "fetch":
			cfg.Data.Fetch = f.fetch
		case "test-size":
			cfg.Split.TestSize = f.testSize
		case "seed":
			cfg.Split.Seed = f.seed
		case "cv":
			cfg.Search.CVFolds = f.cvFolds
		case "n-jobs":
			cfg.Search.NJobs = f.nJobs
		case "scale":
			cfg.Preprocess.Scale = f.scale
		case "preprocessor":
			cfg.Output.PreprocessorPath = f.preprocessor
		case "plot":
			cfg.Output.PlotPath = f.plot
		case "report":
			cfg.Output.ReportPath = f.report
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := log.SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runFetch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("fetch", stderr)
	var f runFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := f.load(fs)
	if err != nil {
		return err
	}
	archive, err := dataset.NewFetcher(nil).Fetch(ctx, cfg.Data.URL, cfg.Data.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "fetched %s into %s\n", archive, cfg.Data.Dir)
	return nil
}

func runPipeline(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	var f runFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := f.load(fs)
	if err != nil {
		return err
	}
	report, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}
	return report.WriteText(stdout)
}

func runSynth(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("synth", stderr)
	rows := fs.Int("rows", 20000, "number of rows")
	seed := fs.Int64("seed", 42, "generator seed")
	out := fs.String("out", config.Default().Data.CSVPath(), "output CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	frame, err := dataset.GenerateSynthetic(*rows, *seed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return herrors.NewIOError("mkdir", filepath.Dir(*out), err)
	}
	if err := dataset.SaveCSV(*out, frame); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d rows to %s\n", frame.NRows(), *out)
	return nil
}

func runPrepare(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("prepare", stderr)
	preprocessor := fs.String("preprocessor", config.Default().Output.PreprocessorPath, "fitted preprocessor")
	in := fs.String("in", "", "input CSV")
	out := fs.String("out", "", "output feature CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return herrors.NewConfigurationError("in/out", "both paths are required", nil)
	}

	n, err := pipeline.Prepare(*preprocessor, *in, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "prepared %d rows into %s\n", n, *out)
	return nil
}
