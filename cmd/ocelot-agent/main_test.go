package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(good, []byte(`
instrumentation:
  scopes:
    services:
      type:
        name: Service
        matcher-mode: ENDS_WITH
  rules:
    trace:
      scopes:
        services: true
`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`
instrumentation:
  internal:
    max-units-per-batch: 0
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", good})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "ok")

	rootCmd.SetArgs([]string{"validate", bad})
	assert.Error(t, rootCmd.Execute())
}

func TestRunRequiresConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"run"})
	assert.Error(t, rootCmd.Execute())
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger(true)
	require.NoError(t, err)
	assert.NotNil(t, log)
	installLogger(log)
}
