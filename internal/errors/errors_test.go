package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStorageError(ErrCodeStoreFailed, "failed to save report", cause).
		WithContext("audit_id", "a-1")

	assert.Equal(t, "STORE_FAILED: failed to save report (caused by: connection refused)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeStorage, err.Type)
	assert.Equal(t, "a-1", err.Context["audit_id"])

	plain := NewValidationError(ErrCodeInvalidRequest, "bad body", nil)
	assert.Equal(t, "INVALID_REQUEST: bad body", plain.Error())
}

func TestAsAppError(t *testing.T) {
	inner := NewAnalysisError(ErrCodeMissingColumn, "column missing", nil)
	wrapped := fmt.Errorf("audit: %w", inner)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCode(wrapped, ErrCodeMissingColumn))
	assert.False(t, HasCode(wrapped, ErrCodeEmptyDataset))

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelDebug).With("component", "test")

	logger.LogError(NewAnalysisError(ErrCodeEmptyDataset, "No data provided", nil).
		WithContext("attribute", "gender"), "analysis failed", "job_id", "j-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "analysis failed", record["msg"])
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "EMPTY_DATASET", record["error_code"])
	assert.Equal(t, "analysis", record["error_type"])
	assert.Equal(t, "gender", record["attribute"])
	assert.Equal(t, "j-1", record["job_id"])
	assert.Equal(t, "test", record["component"])

	buf.Reset()
	logger.LogError(stderrors.New("boom"), "plain failure")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "boom", record["error"])
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("ignored")
		logger.LogError(stderrors.New("ignored"), "ignored")
	})
}
