// Standard attribute keys. Using the same keys in every stage keeps run logs
// greppable: `jq 'select(."pipeline.stage" == "train")'` works across packages.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestRegressor".
	ModelNameKey = "model.name"

	// OperationKey is the estimator operation: "fit", "predict", "transform".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "training", "validation", "testing".
	PhaseKey = "ml.phase"
)

// Pipeline context.
const (
	// RunIDKey identifies one pipeline run; every record of a run carries it.
	RunIDKey = "pipeline.run_id"

	// StageKey names the pipeline stage emitting the record.
	StageKey = "pipeline.stage"

	// PathKey is a filesystem path or URL touched by the stage.
	PathKey = "pipeline.path"
)

// Data shape.
const (
	// SamplesKey is the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"
)

// Performance and scores.
const (
	// DurationMsKey is the wall time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RMSEKey is a root-mean-squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey is the coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// CVScoreKey is a mean cross-validated score (negative MSE).
	CVScoreKey = "metrics.cv_score"

	// FoldKey is the cross-validation fold index.
	FoldKey = "cv.fold"
)

// Hyperparameters and configuration.
const (
	// HyperParamsKey holds a hyperparameter combination.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey is the seed driving a random procedure.
	RandomSeedKey = "config.random_seed"
)

// Error context.
const (
	// ErrorTypeKey categorizes the error, e.g. "SchemaError".
	ErrorTypeKey = "error.type"

	// SuggestionKey carries a hint for resolving the problem.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"

	StageFetch      = "fetch"
	StageLoad       = "load"
	StageDerive     = "derive"
	StageSplit      = "split"
	StageExplore    = "explore"
	StagePreprocess = "preprocess"
	StageTrain      = "train"
	StageEvaluate   = "evaluate"
)
