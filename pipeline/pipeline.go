// Package pipeline runs the housing regression pipeline end to end: load,
// derive income categories, stratified split, preprocess, model selection
// and evaluation on the held-out test set.
//
//	report, err := pipeline.Run(ctx, config.Default())
//	if err != nil {
//		return err
//	}
//	report.WriteText(os.Stdout)
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ezoic/housing/config"
	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
	"github.com/ezoic/housing/preprocessing"
)

// plotAlpha matches the density view of the geographic scatter plot.
const plotAlpha = 0.1

// Run loads the dataset named by cfg, fetching it first when cfg.Data.Fetch
// is set, and runs the pipeline on it.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frame, err := LoadFrame(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}
	return RunFrame(ctx, cfg, frame)
}

// LoadFrame fetches the archive when requested and reads the CSV.
func LoadFrame(ctx context.Context, cfg config.DataConfig) (*dataset.Frame, error) {
	if cfg.Fetch {
		if _, err := dataset.NewFetcher(nil).Fetch(ctx, cfg.URL, cfg.Dir); err != nil {
			return nil, err
		}
	}
	return dataset.LoadCSV(cfg.CSVPath(), dataset.HousingSchema)
}

// RunFrame runs every stage after loading. frame is not modified.
func RunFrame(ctx context.Context, cfg *config.Config, frame *dataset.Frame) (_ *Report, err error) {
	defer herrors.Recover(&err, "pipeline.RunFrame")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	report := &Report{
		RunID:            uuid.NewString(),
		Started:          time.Now(),
		NRows:            frame.NRows(),
		PreprocessorPath: cfg.Output.PreprocessorPath,
		PlotPath:         cfg.Output.PlotPath,
	}
	logger := log.GetLoggerWithName("pipeline").With(log.RunIDKey, report.RunID)
	stage := func(name string) log.Logger { return logger.With(log.StageKey, name) }

	logger.Info("Pipeline started",
		log.SamplesKey, frame.NRows(),
		log.RandomSeedKey, cfg.Split.Seed,
	)

	// derive
	frame = frame.Clone()
	if err := dataset.AddIncomeCategory(frame); err != nil {
		return nil, err
	}
	labels, err := dataset.IncomeLabels(frame)
	if err != nil {
		return nil, err
	}

	// split
	split, err := dataset.StratifiedSplit(frame, cfg.Split.TestSize, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	random, err := dataset.RandomSplit(frame, cfg.Split.TestSize, cfg.Split.Seed)
	if err != nil {
		return nil, err
	}
	report.NTrain, report.NTest = split.Train.NRows(), split.Test.NRows()
	report.Proportions = dataset.CompareProportions(labels, split.TestIndex, random.TestIndex)
	stage("split").Info("Stratified split done",
		"train", report.NTrain,
		"test", report.NTest,
	)

	// explore
	if cfg.Output.PlotPath != "" {
		if err := ensureDir(cfg.Output.PlotPath); err != nil {
			return nil, err
		}
		if err := dataset.SaveGeoScatter(split.Train, plotAlpha, cfg.Output.PlotPath); err != nil {
			return nil, err
		}
		stage("explore").Info("Geographic scatter saved", log.PathKey, cfg.Output.PlotPath)
	}
	explored, err := dataset.AddRatioFeatures(split.Train, dataset.RatioFeatures)
	if err != nil {
		return nil, err
	}
	if report.Correlations, err = dataset.Correlations(explored, dataset.MedianHouseValue); err != nil {
		return nil, err
	}

	// preprocess
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fitted, err := preprocessing.NewHousingPreprocessor(cfg.Preprocess.Options()...).Fit(split.Train)
	if err != nil {
		return nil, err
	}
	if cfg.Output.PreprocessorPath != "" {
		if err := ensureDir(cfg.Output.PreprocessorPath); err != nil {
			return nil, err
		}
		if err := fitted.Save(cfg.Output.PreprocessorPath); err != nil {
			return nil, err
		}
		stage("preprocess").Info("Preprocessor saved", log.PathKey, cfg.Output.PreprocessorPath)
	}
	Xtrain, names, err := fitted.Transform(split.Train)
	if err != nil {
		return nil, err
	}
	ytrain, err := Target(split.Train)
	if err != nil {
		return nil, err
	}
	report.Features = names

	// train
	training, err := NewTrainer(cfg.Search).Train(ctx, Xtrain, ytrain, names)
	if err != nil {
		return nil, err
	}
	report.Training = training

	// evaluate
	Xtest, _, err := fitted.Transform(split.Test)
	if err != nil {
		return nil, err
	}
	ytest, err := Target(split.Test)
	if err != nil {
		return nil, err
	}
	if report.Evaluation, err = Evaluate(training.Final.Estimator, Xtest, ytest, DefaultConfidence); err != nil {
		return nil, err
	}
	report.Duration = time.Since(report.Started)

	stage("evaluate").Info("Pipeline completed",
		log.RMSEKey, report.Evaluation.RMSE,
		log.R2ScoreKey, report.Evaluation.R2,
		log.DurationMsKey, report.Duration.Milliseconds(),
	)

	if cfg.Output.ReportPath != "" {
		if err := report.Save(cfg.Output.ReportPath); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Save writes WriteText output to path.
func (r *Report) Save(path string) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return herrors.NewIOError("create", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = herrors.NewIOError("close", path, cerr)
		}
	}()
	if err := r.WriteText(file); err != nil {
		return herrors.NewIOError("write", path, err)
	}
	return nil
}

// Prepare applies a persisted preprocessor to the CSV at inputPath and
// writes the feature matrix, with its feature names as header, to
// outputPath. The target column is optional in the input. It returns the
// number of rows written.
func Prepare(preprocessorPath, inputPath, outputPath string) (int, error) {
	fitted, err := preprocessing.LoadPreprocessor(preprocessorPath)
	if err != nil {
		return 0, err
	}
	frame, err := dataset.LoadCSV(inputPath, dataset.HousingSchema.Without(dataset.MedianHouseValue))
	if err != nil {
		return 0, err
	}
	X, names, err := fitted.Transform(frame)
	if err != nil {
		return 0, err
	}

	n := frame.NRows()
	out := dataset.NewFrame(n)
	for j, name := range names {
		col := make([]float64, n)
		for i := range col {
			col[i] = X.At(i, j)
		}
		if err := out.SetNumeric(name, col); err != nil {
			return 0, err
		}
	}
	if err := ensureDir(outputPath); err != nil {
		return 0, err
	}
	if err := dataset.SaveCSV(outputPath, out); err != nil {
		return 0, err
	}

	log.GetLoggerWithName("pipeline").Info("Features prepared",
		log.PathKey, outputPath,
		log.SamplesKey, n,
		log.FeaturesKey, len(names),
	)
	return n, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return herrors.NewIOError("mkdir", dir, err)
	}
	return nil
}
