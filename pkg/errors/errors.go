// Package errors provides the error taxonomy and warning system used across the
// housing pipeline.
//
// Every pipeline failure is fatal. The taxonomy exists so that the operator (and
// tests) can tell apart the four ways a run can die:
//
//   - IOError: a file or network resource is missing or unreadable
//   - ConfigurationError: an invalid split fraction, strategy name or other setting
//   - DomainError: a derivation received input outside its domain
//   - SchemaError: an expected column is absent from the input table
//
// Constructors attach a stack trace through github.com/cockroachdb/errors, and
// every type implements zerolog.LogObjectMarshaler for structured logging.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("housing-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the process-wide warning handler.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // drop warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. A zerolog sink takes precedence over the plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// UnknownCategoryWarning is raised when a categorical level seen at transform
// time was not observed at fit time. The level is encoded as a zero vector.
type UnknownCategoryWarning struct {
	Column string
	Level  string
	Count  int
}

func (w *UnknownCategoryWarning) Error() string {
	return fmt.Sprintf("column '%s': level %q unseen during fit (%d rows), encoded as all zeros", w.Column, w.Level, w.Count)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *UnknownCategoryWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("level", w.Level).
		Int("count", w.Count).
		Str("type", "UnknownCategoryWarning")
}

// NewUnknownCategoryWarning creates a new UnknownCategoryWarning.
func NewUnknownCategoryWarning(column, level string, count int) *UnknownCategoryWarning {
	return &UnknownCategoryWarning{Column: column, Level: level, Count: count}
}

// MissingLevelWarning is raised when a categorical column has blank cells.
// Blank cells are never learned as a level and encode as a zero vector.
type MissingLevelWarning struct {
	Column string
	Phase  string
	Count  int
}

func (w *MissingLevelWarning) Error() string {
	return fmt.Sprintf("column '%s': %d blank cells at %s, encoded as all zeros", w.Column, w.Count, w.Phase)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *MissingLevelWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("phase", w.Phase).
		Int("count", w.Count).
		Str("type", "MissingLevelWarning")
}

// NewMissingLevelWarning creates a new MissingLevelWarning.
func NewMissingLevelWarning(column, phase string, count int) *MissingLevelWarning {
	return &MissingLevelWarning{Column: column, Phase: phase, Count: count}
}

// UndefinedMetricWarning is raised when a metric cannot be computed and a
// fallback value is returned instead.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Pipeline error taxonomy
//
// ===========================================================================

// IOError reports a file or network resource that is missing or unreadable.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("housing: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("housing: %s %s", e.Op, e.Path)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *IOError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Str("type", "IOError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewIOError creates a new IOError with a stack trace.
func NewIOError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// ConfigurationError reports an invalid setting: a split fraction outside
// (0,1), an unknown strategy name, a missing stratification column.
type ConfigurationError struct {
	Param  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("housing: invalid configuration '%s': %s (got: %v)", e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a new ConfigurationError with a stack trace.
func NewConfigurationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ConfigurationError{Param: param, Reason: reason, Value: value})
}

// DomainError reports a derivation input outside its expected range, such as
// a negative or missing median income.
type DomainError struct {
	Op     string
	Column string
	Row    int
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("housing: %s: column '%s' row %d: %s (got: %v)", e.Op, e.Column, e.Row, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DomainError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Int("row", e.Row).
		Float64("value", e.Value).
		Str("reason", e.Reason).
		Str("type", "DomainError")
}

// NewDomainError creates a new DomainError with a stack trace.
func NewDomainError(op, column string, row int, value float64, reason string) error {
	return errors.WithStack(&DomainError{Op: op, Column: column, Row: row, Value: value, Reason: reason})
}

// SchemaError reports an expected column that is absent from the input table,
// or a cell that does not match the column type.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("housing: schema: column '%s': %s", e.Column, e.Reason)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("reason", e.Reason).
		Str("type", "SchemaError")
}

// NewSchemaError creates a new SchemaError with a stack trace.
func NewSchemaError(column, reason string) error {
	return errors.WithStack(&SchemaError{Column: column, Reason: reason})
}

// ===========================================================================
//
//	Estimator errors
//
// ===========================================================================

// NotFittedError is returned when Predict or Transform is called on a model
// that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("housing: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a new NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError is returned when input dimensions differ from the expected ones.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("housing: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError is returned when an estimator hyperparameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("housing: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a new ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is returned when an argument has an inappropriate value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("housing: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a general estimator failure wrapping an underlying cause.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("housing: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("housing: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a new ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinels
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an operation receives no rows.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when X^T X cannot be inverted.
	ErrSingularMatrix = New("singular matrix")
)
