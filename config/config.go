// Package config holds every setting of a housing pipeline run. Values come
// from Default, optionally overlaid by a YAML file through Load, and finally
// by command-line flags in cmd/housing.
//
//	cfg, err := config.Load("housing.yaml")
//	if err != nil {
//		return err
//	}
//	report, err := pipeline.Run(ctx, cfg)
package config

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ezoic/housing/dataset"
	herrors "github.com/ezoic/housing/pkg/errors"
	"github.com/ezoic/housing/pkg/log"
	"github.com/ezoic/housing/preprocessing"
	"github.com/ezoic/housing/sklearn/model_selection"
)

// Config is the full configuration of a pipeline run.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Split      SplitConfig      `yaml:"split"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Search     SearchConfig     `yaml:"search"`
	Output     OutputConfig     `yaml:"output"`
	LogLevel   string           `yaml:"log_level"`
}

// DataConfig locates the dataset.
type DataConfig struct {
	Dir     string `yaml:"dir"`
	URL     string `yaml:"url"`
	CSVName string `yaml:"csv_name"`
	Fetch   bool   `yaml:"fetch"` // download and extract URL into Dir before loading
}

// CSVPath is Dir/CSVName.
func (d DataConfig) CSVPath() string {
	return filepath.Join(d.Dir, d.CSVName)
}

// SplitConfig controls the stratified train/test split.
type SplitConfig struct {
	TestSize float64 `yaml:"test_size"`
	Seed     int64   `yaml:"seed"`
}

// PreprocessConfig selects the preprocessor options.
type PreprocessConfig struct {
	Strategy  string `yaml:"strategy"`
	DropFirst bool   `yaml:"drop_first"`
	Scale     bool   `yaml:"scale"`
}

// Options converts the settings to preprocessor options.
func (p PreprocessConfig) Options() []preprocessing.Option {
	return []preprocessing.Option{
		preprocessing.WithStrategy(p.Strategy),
		preprocessing.WithDropFirst(p.DropFirst),
		preprocessing.WithScaling(p.Scale),
	}
}

// IntRange is a randint distribution over [Low, High).
type IntRange struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

// RandomizedConfig configures the randomized hyperparameter search.
type RandomizedConfig struct {
	NIter         int                 `yaml:"n_iter"`
	Seed          int64               `yaml:"seed"`
	Distributions map[string]IntRange `yaml:"distributions"`
}

// SearchConfig configures model selection.
type SearchConfig struct {
	CVFolds    int              `yaml:"cv_folds"`
	ForestSeed int64            `yaml:"forest_seed"` // random_state of every forest
	TreeSeed   int64            `yaml:"tree_seed"`   // random_state of the tree baseline
	NJobs      int              `yaml:"n_jobs"`      // <= 0 uses every CPU
	Randomized RandomizedConfig `yaml:"randomized"`
	// Grid is a list of grids mapping a forest hyperparameter to the
	// values to try.
	Grid []map[string][]interface{} `yaml:"grid"`
}

// ParamDistributions returns the randomized search distributions.
func (s SearchConfig) ParamDistributions() map[string]model_selection.Distribution {
	out := make(map[string]model_selection.Distribution, len(s.Randomized.Distributions))
	for k, r := range s.Randomized.Distributions {
		out[k] = model_selection.RandInt{Low: r.Low, High: r.High}
	}
	return out
}

// ParamGrid returns the grid search parameter grid.
func (s SearchConfig) ParamGrid() model_selection.ParameterGrid {
	return model_selection.ParameterGrid(s.Grid)
}

// OutputConfig names the files a run writes. Empty paths disable the output.
type OutputConfig struct {
	PreprocessorPath string `yaml:"preprocessor_path"`
	PlotPath         string `yaml:"plot_path"`
	ReportPath       string `yaml:"report_path"`
}

// Default returns the configuration of the reference tutorial run.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:     filepath.Join("datasets", "housing"),
			URL:     dataset.DefaultHousingURL,
			CSVName: "housing.csv",
		},
		Split: SplitConfig{
			TestSize: 0.2,
			Seed:     42,
		},
		Preprocess: PreprocessConfig{
			Strategy:  preprocessing.StrategyMedian,
			DropFirst: true,
		},
		Search: SearchConfig{
			CVFolds:    5,
			ForestSeed: 42,
			TreeSeed:   42,
			Randomized: RandomizedConfig{
				NIter: 10,
				Seed:  42,
				Distributions: map[string]IntRange{
					"n_estimators": {Low: 1, High: 200},
					"max_features": {Low: 1, High: 8},
				},
			},
			Grid: []map[string][]interface{}{
				{"n_estimators": {3, 10, 30}, "max_features": {2, 4, 6, 8}},
				{"bootstrap": {false}, "n_estimators": {3, 10}, "max_features": {2, 3, 4}},
			},
		},
		Output: OutputConfig{
			PreprocessorPath: filepath.Join("artifacts", "preprocessor.gob"),
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over Default and validates the result. Keys absent
// from the file keep their default; the randomized distributions merge with
// the defaults key by key while a grid in the file replaces the default one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, herrors.NewIOError("read config", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, herrors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse is Load for an already opened document. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, herrors.NewConfigurationError("yaml", err.Error(), nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, herrors.Wrap(err, "marshal config")
	}
	return out, nil
}

// Validate reports the first invalid setting as a ConfigurationError.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return herrors.NewConfigurationError("data.dir", "must not be empty", c.Data.Dir)
	}
	if c.Data.CSVName == "" {
		return herrors.NewConfigurationError("data.csv_name", "must not be empty", c.Data.CSVName)
	}
	if c.Data.Fetch {
		u, err := url.Parse(c.Data.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return herrors.NewConfigurationError("data.url", "must be an absolute http(s) URL when fetch is enabled", c.Data.URL)
		}
	}

	if !(c.Split.TestSize > 0 && c.Split.TestSize < 1) {
		return herrors.NewConfigurationError("split.test_size", "must be in (0, 1)", c.Split.TestSize)
	}

	switch c.Preprocess.Strategy {
	case preprocessing.StrategyMedian, preprocessing.StrategyMean:
	default:
		return herrors.NewConfigurationError("preprocess.strategy", "must be median or mean", c.Preprocess.Strategy)
	}

	s := c.Search
	if s.CVFolds < 2 {
		return herrors.NewConfigurationError("search.cv_folds", "must be at least 2", s.CVFolds)
	}
	if s.Randomized.NIter < 1 {
		return herrors.NewConfigurationError("search.randomized.n_iter", "must be at least 1", s.Randomized.NIter)
	}
	if len(s.Randomized.Distributions) == 0 {
		return herrors.NewConfigurationError("search.randomized.distributions", "must not be empty", nil)
	}
	keys := make([]string, 0, len(s.Randomized.Distributions))
	for k := range s.Randomized.Distributions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := s.Randomized.Distributions[k]
		if r.Low >= r.High {
			return herrors.NewConfigurationError("search.randomized.distributions."+k, "low must be below high", r)
		}
	}
	if len(s.Grid) == 0 {
		return herrors.NewConfigurationError("search.grid", "must contain at least one grid", nil)
	}
	for i, grid := range s.Grid {
		for k, vs := range grid {
			if len(vs) == 0 {
				return herrors.NewConfigurationError("search.grid."+k, "values must be non-empty", i)
			}
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
