package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquid600pgm/rod/config"
)

func captureOutput(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	saved := color.Output
	color.Output = w
	defer func() { color.Output = saved }()

	f()
	require.NoError(t, w.Close())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestRunListing(t *testing.T) {
	cfg := config.Default()
	cfg.Disasm.Color = config.ColorNever
	cfg.Disasm.Lines = true

	var runErr error
	out := captureOutput(t, func() {
		runErr = run(filepath.Join("testdata", "calc.rasm"), cfg, false)
	})
	require.NoError(t, runErr)

	assert.Contains(t, out, "; === main ===")
	assert.Contains(t, out, "; === proc 0: print (foreign, 1 params) ===")
	assert.Contains(t, out, "; === proc 1: double (1 params, stack 2) ===")
	assert.Contains(t, out, "CONSTR_OBJ 10 fields=2")
	assert.Contains(t, out, "; Pair")
	assert.Contains(t, out, "line 20:5")
	assert.False(t, strings.Contains(out, "\x1b["), "colour disabled")
}

func TestRunQuiet(t *testing.T) {
	out := captureOutput(t, func() {
		require.NoError(t, run(filepath.Join("testdata", "calc.rasm"), config.Default(), true))
	})
	assert.Empty(t, out)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.rasm")
	require.NoError(t, os.WriteFile(bad, []byte(".main\n bogus\n.end\n"), 0644))
	err := run(bad, config.Default(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.rasm:2")

	invalid := filepath.Join(dir, "invalid.rasm")
	require.NoError(t, os.WriteFile(invalid, []byte(".main\n jump_back 9\n.end\n"), 0644))
	err = run(invalid, config.Default(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid bytecode")

	err = run(filepath.Join(dir, "missing.rasm"), config.Default(), true)
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Verbosity = 2
	applyFlags(cfg, map[string]bool{}, 0, "", false)
	assert.Equal(t, 2, cfg.Log.Verbosity, "unset -v keeps the rod.toml value")

	applyFlags(cfg, map[string]bool{"v": true}, -1, "never", true)
	assert.Equal(t, -1, cfg.Log.Verbosity, "-v -1 selects warnings")
	assert.Equal(t, config.ColorNever, cfg.Disasm.Color)
	assert.True(t, cfg.Disasm.Lines)
	require.NoError(t, cfg.Validate())
}
