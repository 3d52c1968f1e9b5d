package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestHelpersUseInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Warn("query skipped", QueryID("residue-graph-x"), Worker(1))
	Debug("detail")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "query skipped", entries[0].Message)
	assert.Equal(t, "residue-graph-x", entries[0].ContextMap()[FieldQueryID])
	assert.EqualValues(t, 1, entries[0].ContextMap()[FieldWorker])
}

func TestNopBeforeInit(t *testing.T) {
	Set(nil)
	assert.NotPanics(t, func() { Info("nothing to see") })
}
