package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	herrors "github.com/ezoic/housing/pkg/errors"
)

// ZerologProvider is the default LoggerProvider. All loggers created from one
// provider share its writer and level.
type ZerologProvider struct {
	mu    sync.RWMutex
	base  zerolog.Logger
	level Level
}

// NewZerologProvider returns a provider writing JSON lines to stderr.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level)
}

// NewZerologProviderWithWriter returns a provider writing JSON lines to w.
func NewZerologProviderWithWriter(w io.Writer, level Level) *ZerologProvider {
	base := zerolog.New(w).With().Timestamp().Logger()
	p := &ZerologProvider{base: base}
	p.SetLevel(level)
	return p
}

// GetLogger returns the provider's root logger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base, provider: p}
}

// GetLoggerWithName returns a logger tagged with ComponentKey=name.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger(), provider: p}
}

// SetLevel changes the minimum level for every logger of the provider,
// including loggers created before the call.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *ZerologProvider) currentLevel() Level {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

type zerologLogger struct {
	zl       zerolog.Logger
	provider *ZerologProvider
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.log(LevelDebug, msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.log(LevelInfo, msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.log(LevelWarn, msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { l.log(LevelError, msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	forEachField(fields, func(key string, value any) {
		ctx = ctx.Interface(key, fieldValue(value))
	})
	return &zerologLogger{zl: ctx.Logger(), provider: l.provider}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.provider.currentLevel()
}

func (l *zerologLogger) log(level Level, msg string, fields []any) {
	if !l.Enabled(context.Background(), level) {
		return
	}

	var e *zerolog.Event
	switch level {
	case LevelDebug:
		e = l.zl.Debug()
	case LevelInfo:
		e = l.zl.Info()
	case LevelWarn:
		e = l.zl.Warn()
	default:
		e = l.zl.Error()
	}

	// Error(msg, err, k, v...) form
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(e, err)
			fields = fields[1:]
		}
	}

	forEachField(fields, func(key string, value any) {
		switch v := value.(type) {
		case error:
			if key == ErrAttrKey {
				addError(e, v)
				return
			}
			e.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		case time.Duration:
			e.Int64(key, v.Milliseconds())
		default:
			e.Interface(key, v)
		}
	})
	e.Msg(msg)
}

func addError(e *zerolog.Event, err error) {
	e.Err(err)
	if m, ok := err.(zerolog.LogObjectMarshaler); ok {
		e.Object("error_detail", m)
	}
	if st := extractStacktrace(err); st != "" {
		e.Str(StacktraceAttrKey, st)
	}
}

// fieldValue flattens values zerolog's context builder cannot marshal itself.
func fieldValue(v any) any {
	switch t := v.(type) {
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func forEachField(fields []any, fn func(key string, value any)) {
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("!BADKEY%d", i)
		}
		if i+1 >= len(fields) {
			fn(key, "!MISSING")
			return
		}
		fn(key, fields[i+1])
	}
}

// ===========================================================================
//
//	Process-wide provider
//
// ===========================================================================

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider
)

func init() {
	SetProvider(NewZerologProvider(LevelInfo))
}

// SetProvider replaces the process-wide provider. Warnings raised through
// pkg/errors.Warn are routed to the new provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defaultProvider = p
	providerMu.Unlock()

	warnLogger := p.GetLoggerWithName("warnings")
	herrors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), "warning", w)
	})
}

// GetProvider returns the process-wide provider.
func GetProvider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider
}

// GetLogger returns the root logger of the process-wide provider.
func GetLogger() Logger {
	return GetProvider().GetLogger()
}

// GetLoggerWithName returns a named logger of the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}

// LogError logs err at error level on the root logger.
func LogError(err error, msg string, fields ...any) {
	GetLogger().Error(msg, append([]any{err}, fields...)...)
}
