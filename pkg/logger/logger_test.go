package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.log")
	log, err := New(Config{Level: "warn", Format: "json", OutputFile: path}, zap.String("run_id", "r1"))
	require.NoError(t, err)

	log.Info("dropped below level")
	log.Warn("anomaly", zap.Int("block", 3))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "WARN", entry["level"])
	require.Equal(t, ServiceName, entry["service"])
	require.Equal(t, "r1", entry["run_id"])
	require.Equal(t, float64(3), entry["block"])
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.log")
	log, err := New(Config{Level: "loud", OutputFile: path})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.DebugLevel))
	require.True(t, log.Core().Enabled(zap.InfoLevel))
}

func TestNew_UnwritablePath(t *testing.T) {
	_, err := New(Config{OutputFile: filepath.Join(t.TempDir(), "missing", "sim.log")})
	require.Error(t, err)
}
