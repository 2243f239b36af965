package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/godaq/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig stores a configuration with a short session in dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Duration = 40 * time.Millisecond
	cfg.Session.HostTimeout = 5 * time.Second
	cfg.Session.ReadyTimeout = time.Second
	cfg.Mock.TickInterval = 200 * time.Microsecond
	cfg.Output.Dir = dir

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, run(t, "--config", path, "config", "init"))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.Error(t, run(t, "--config", path, "config", "init"))
}

func TestCleanAndFilter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "session.csv")

	var sb strings.Builder
	sb.WriteString("RECORDING_STARTED\n")
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&sb, "%d,%d,2.500,1.000,0.000,5.000\n", i, 2*i)
	}
	require.NoError(t, os.WriteFile(src, []byte(sb.String()), 0o644))

	require.NoError(t, run(t, "--config", filepath.Join(dir, "none.yaml"), "clean", src))
	clean := filepath.Join(dir, "session_clean.csv")
	assert.FileExists(t, clean)

	require.NoError(t, run(t, "--config", filepath.Join(dir, "none.yaml"), "filter", "--order", "2", clean))
	assert.FileExists(t, filepath.Join(dir, "session_clean_filtered.csv"))
}

func TestRecordMock(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	require.NoError(t, run(t, "--config", cfgPath, "record", "--mock"))

	matches, err := filepath.Glob(filepath.Join(dir, "arduino_daq_data_*.csv"))
	require.NoError(t, err)

	var raw, clean, filtered int
	for _, m := range matches {
		switch {
		case strings.HasSuffix(m, "_clean_filtered.csv"):
			filtered++
		case strings.HasSuffix(m, "_clean.csv"):
			clean++
		default:
			raw++
		}
	}
	assert.Equal(t, 1, raw)
	assert.Equal(t, 1, clean)
	assert.Equal(t, 1, filtered)
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, run(t, "--config", writeConfig(t, dir), "simulate"))
}
