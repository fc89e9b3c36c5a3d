package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	markuperrors "github.com/conneroisu/markup/pkg/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Format: "text", Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, nil, "warn message")
	logger.Error(ctx, errors.New("boom"), "error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
	assert.Contains(t, out, "error=boom")
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("render").With("file", "page.yml").Info(context.Background(), "rendered", "bytes", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rendered", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "render", entry["component"])
	assert.Equal(t, "page.yml", entry["file"])
	assert.Equal(t, float64(42), entry["bytes"])
}

func TestWithDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	_ = base.With("request", "a")
	base.Info(context.Background(), "plain")

	assert.NotContains(t, buf.String(), "request=a")
}

func TestErrorFields(t *testing.T) {
	err := markuperrors.IndexOutOfBounds("array", -2).WithContext("path", "array[-2]")

	fields := ErrorFields(err)
	assert.Equal(t, []interface{}{
		"error_type", "template",
		"error_code", markuperrors.ErrCodeIndexOutOfBounds,
		"index", -2,
		"key", "array",
		"path", "array[-2]",
	}, fields)

	assert.Nil(t, ErrorFields(errors.New("plain")))
	assert.Nil(t, ErrorFields(nil))
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})

	LogError(logger, context.Background(), markuperrors.UnknownFilter("nope"), "render failed", "file", "x.yml")

	out := buf.String()
	assert.Contains(t, out, "render failed")
	assert.Contains(t, out, "file=x.yml")
	assert.Contains(t, out, "error_code="+markuperrors.ErrCodeUnknownFilter)
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	op := StartOperation(logger, "render")
	op.End(context.Background(), "bytes", 10)
	assert.Contains(t, buf.String(), "operation=render")
	assert.Contains(t, buf.String(), "duration=")

	buf.Reset()
	op.EndWithError(context.Background(), errors.New("failed"))
	assert.Contains(t, buf.String(), "Operation failed")
	assert.Contains(t, buf.String(), "error=failed")
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error(context.Background(), errors.New("x"), "discarded")
	//nolint:staticcheck // a nil context is tolerated
	logger.Error(nil, nil, "discarded")
	assert.Equal(t, LevelError, logger.level)
}

func TestTextOutputIsOneLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	logger.Info(context.Background(), "first")
	logger.Info(context.Background(), "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}
