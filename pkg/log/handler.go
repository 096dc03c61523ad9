package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// ErrorKindAttrKey names the attribute that classifies a logged error.
const ErrorKindAttrKey = "error_kind"

// ErrFmtHandler is a slog handler that expands the ErrAttrKey attribute of a
// record. It adds the cockroachdb/errors stack trace as StacktraceAttrKey and
// the housing error kind (io, config, domain, schema, ...) as
// ErrorKindAttrKey, so operators can filter failed runs by cause.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with an ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var logged error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		logged, _ = attr.Value.Any().(error)
		return false
	})
	if logged != nil {
		r.AddAttrs(slog.String(ErrorKindAttrKey, ErrorKind(logged)))
		if st := extractStacktrace(logged); st != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, st))
		}
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// ErrorKind classifies err by the first housing error type in its chain.
// Errors outside the taxonomy, such as context.Canceled, are "other".
func ErrorKind(err error) string {
	var (
		ioErr     *herrors.IOError
		cfgErr    *herrors.ConfigurationError
		domainErr *herrors.DomainError
		schemaErr *herrors.SchemaError
		notFitted *herrors.NotFittedError
		dimErr    *herrors.DimensionError
		modelErr  *herrors.ModelError
		panicErr  *herrors.PanicError
	)
	switch {
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &domainErr):
		return "domain"
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &notFitted):
		return "not_fitted"
	case errors.As(err, &dimErr):
		return "dimension"
	case errors.As(err, &modelErr):
		return "model"
	case errors.As(err, &panicErr):
		return "panic"
	default:
		return "other"
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
