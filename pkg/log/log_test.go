package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/ezoic/housing/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologProvider_Fields(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug)

	logger := p.GetLoggerWithName("splitter").With(RunIDKey, "run-1", StageKey, StageSplit)
	logger.Info("Split completed", SamplesKey, 100, "test_size", 0.2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "Split completed", lines[0]["message"])
	assert.Equal(t, "splitter", lines[0][ComponentKey])
	assert.Equal(t, "run-1", lines[0][RunIDKey])
	assert.Equal(t, StageSplit, lines[0][StageKey])
	assert.Equal(t, float64(100), lines[0][SamplesKey])
	assert.Equal(t, 0.2, lines[0]["test_size"])
}

func TestZerologProvider_ErrorFirstField(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)

	err := herrors.NewSchemaError("median_income", "column not present")
	p.GetLogger().Error("Stage failed", err, StageKey, StageLoad)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Contains(t, lines[0]["error"], "median_income")
	assert.Equal(t, StageLoad, lines[0][StageKey])
}

func TestZerologProvider_Level(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelWarn)
	logger := p.GetLogger()

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.Len(t, decodeLines(t, &buf), 1)

	// existing loggers follow the provider level
	p.SetLevel(LevelDebug)
	logger.Debug("now shown")
	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestSetProvider_RoutesWarnings(t *testing.T) {
	prev := GetProvider()
	t.Cleanup(func() { SetProvider(prev) })

	p, captured := NewTestLoggerProvider(LevelDebug)
	SetProvider(p)

	herrors.Warn(herrors.NewUnknownCategoryWarning("ocean_proximity", "ISLAND", 1))

	assert.True(t, captured.ContainsMessage("ISLAND"))
	assert.True(t, captured.ContainsField(ComponentKey, "warnings"))
	assert.True(t, captured.ContainsField("level", "WARN"))
}

func TestLogError(t *testing.T) {
	prev := GetProvider()
	t.Cleanup(func() { SetProvider(prev) })

	p, captured := NewTestLoggerProvider(LevelDebug)
	SetProvider(p)

	LogError(herrors.New("boom"), "Pipeline aborted", StageKey, StageTrain)

	entries, err := captured.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pipeline aborted", entries[0]["message"])
	assert.Equal(t, "boom", entries[0][ErrAttrKey])
	assert.Equal(t, StageTrain, entries[0][StageKey])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var cfgErr *herrors.ConfigurationError
				assert.True(t, herrors.As(err, &cfgErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestLogger_With(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	child := logger.With(ModelNameKey, "DecisionTreeRegressor")

	child.Debug("dropped")
	child.Info("Fit completed", OperationKey, OperationFit)

	entries, err := logger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DecisionTreeRegressor", entries[0][ModelNameKey])
	assert.Equal(t, OperationFit, entries[0][OperationKey])
}
