package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendcast/internal/config"
	"github.com/theirongolddev/spendcast/internal/forecast"
)

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", "x", "--detach=true"})
	assert.Equal(t, []string{"daemon", "--addr", "x"}, got)
}

func TestPIDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.pid")
	require.NoError(t, writePID(path, 4242))

	pid, err := readPID(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	_, err = readPID(filepath.Join(t.TempDir(), "missing.pid"))
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	path := statePath(filepath.Join(t.TempDir(), "d.pid"))
	in := daemonRuntimeState{PID: 7, Addr: "127.0.0.1:9", ImportDir: "/tmp/in", Schedule: "@every 1m"}
	require.NoError(t, writeState(path, in))

	out, err := readState(path)
	require.NoError(t, err)
	assert.Equal(t, in.Addr, out.Addr)
	assert.Equal(t, in.Schedule, out.Schedule)
	assert.Equal(t, in.ImportDir, out.ImportDir)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "abcd...", maskSecret("abcdefgh"))
	assert.Equal(t, "abcdefgh...wxyz", maskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestHorizonOrDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, 14, horizonOrDefault(14, cfg))
	assert.Equal(t, forecast.DefaultHorizon, horizonOrDefault(0, cfg))

	cfg.General.DefaultHorizon = 30
	assert.Equal(t, 30, horizonOrDefault(-1, cfg))
}

func TestNewLogger(t *testing.T) {
	log := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = newLogger(config.LogConfig{Level: "bogus"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestBuildPredictor_NeuralDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Disabled = true
	p, mgr := buildPredictor(cfg, logrus.New(), false)
	require.NotNil(t, p)
	assert.Nil(t, mgr)

	cfg.Model.Disabled = false
	_, mgr = buildPredictor(cfg, logrus.New(), true)
	assert.Nil(t, mgr)
}

func TestBuildPredictor_MissingModelFallsBack(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Path = filepath.Join(t.TempDir(), "absent.onnx")
	p, mgr := buildPredictor(cfg, logrus.New(), false)
	require.NotNil(t, mgr)
	defer closeModel(mgr, logrus.New())

	res := p.Forecast(t.Context(), []forecast.HistoryPoint{
		{Date: mustDate(t, "2024-03-01"), Expense: 10},
		{Date: mustDate(t, "2024-03-02"), Expense: 12},
	}, 3)
	assert.Len(t, res.Points, 3)
	assert.False(t, res.NeuralUsed)
	assert.Error(t, res.NeuralErr)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	require.NoError(t, err)
	return d
}
