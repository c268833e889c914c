package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
)

const sampleSettings = `
instrumentation:
  internal:
    inter-batch-delay: 10ms
    max-units-per-batch: 3
    max-units-to-modify-per-batch: 2
  special:
    executor-context-propagation: false
  ignored-bootstrap-packages:
    "javax.": true
  scopes:
    s_service:
      type:
        name: Service
        matcher-mode: ENDS_WITH
      methods:
        - name: handle
          visibility: [PUBLIC]
          arguments: []
  rules:
    r_trace:
      scopes:
        s_service: true
      actions: [span]
    r_off:
      enabled: false
      scopes:
        s_service: true
self-monitoring:
  enabled: true
`

func TestParse(t *testing.T) {
	raw, err := Parse([]byte(sampleSettings))
	require.NoError(t, err)

	in := raw.Instrumentation
	assert.Equal(t, 10*time.Millisecond, in.Internal.InterBatchDelay)
	assert.Equal(t, 3, in.Internal.MaxUnitsPerBatch)
	assert.Equal(t, 2, in.Internal.MaxUnitsToModifyPerBatch)
	assert.Equal(t, 100, in.Internal.ShutdownBatchSize, "unset values keep their defaults")
	assert.False(t, in.Special.ExecutorContextPropagation)
	assert.True(t, in.Special.ClassLoaderDelegation)
	assert.True(t, in.IgnoredBootstrapPackages["javax."])
	assert.True(t, in.IgnoredBootstrapPackages["sun."], "default prefixes are merged")
	assert.True(t, raw.SelfMonitoring.Enabled)

	scope := in.Scopes["s_service"]
	require.NotNil(t, scope.Type)
	assert.Equal(t, EndsWith, scope.Type.MatcherMode)
	require.Len(t, scope.Methods, 1)
	assert.NotNil(t, scope.Methods[0].Arguments)
	assert.Empty(t, scope.Methods[0].Arguments)

	assert.True(t, in.Rules["r_trace"].IsEnabled())
	assert.False(t, in.Rules["r_off"].IsEnabled())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind errors.Kind
	}{
		{
			name: "zero check cap",
			yaml: "instrumentation:\n  internal:\n    max-units-per-batch: 0\n",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "unknown matcher mode",
			yaml: "instrumentation:\n  scopes:\n    s:\n      type:\n        name: A\n        matcher-mode: FUZZY\n",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "unknown visibility",
			yaml: "instrumentation:\n  scopes:\n    s:\n      methods:\n        - name: a\n          visibility: [FRIEND]\n",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "malformed yaml",
			yaml: "instrumentation: [",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "empty ignored package",
			yaml: "instrumentation:\n  ignored-packages:\n    \"\": true\n",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "empty support prefix",
			yaml: "instrumentation:\n  internal:\n    support-prefixes: [\"\"]\n",
			kind: errors.KindInvalidConfig,
		},
		{
			name: "strict unknown scope",
			yaml: "instrumentation:\n  strict-scope-references: true\n  rules:\n    r:\n      scopes:\n        missing: true\n",
			kind: errors.KindUnknownScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "got %T", err)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestParse_LenientUnknownScope(t *testing.T) {
	_, err := Parse([]byte("instrumentation:\n  rules:\n    r:\n      scopes:\n        missing: true\n"))
	assert.NoError(t, err)
}

func TestMatcherMode_Valid(t *testing.T) {
	assert.True(t, MatcherMode("").Valid())
	assert.True(t, Matches.Valid())
	assert.False(t, MatcherMode("equals").Valid())
}

func TestEnabledPrefixes(t *testing.T) {
	got := EnabledPrefixes(map[string]bool{"a.": true, "b.": false, " ": true})
	assert.Equal(t, []string{"a."}, got)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o644))

	changes := make(chan *Raw, 4)
	w, err := NewWatcher(path, func(raw *Raw) { changes <- raw })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// invalid content is ignored
	require.NoError(t, os.WriteFile(path, []byte("instrumentation:\n  internal:\n    max-units-per-batch: 0\n"), 0o644))
	select {
	case <-changes:
		t.Fatal("invalid settings must not be published")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("self-monitoring:\n  enabled: true\n"), 0o644))
	select {
	case raw := <-changes:
		assert.True(t, raw.SelfMonitoring.Enabled)
	case <-time.After(5 * time.Second):
		t.Fatal("settings change was not observed")
	}
}

func TestParse_InvalidPattern(t *testing.T) {
	_, err := Parse([]byte("instrumentation:\n  scopes:\n    s:\n      type:\n        name: \"(\"\n        matcher-mode: MATCHES\n"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidConfig}))
}
