package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(env map[string]string) *Loader {
	l := NewLoader()
	l.getenv = func(key string) string { return env[key] }
	return l
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "nodeutils.yaml", `
api: nxapi
product: N9K-C93180
sources:
  - /etc/nodeutils/ref
store:
  path: /var/lib/nodeutils.db
lint:
  fail_on: warning
  enable: [feature-order]
device:
  host: switch1.lab
  user: admin
  password: secret
  timeout: 5s
telemetry:
  service_name: nodeutils
  logging:
    level: debug
    format: json
`)

	s, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "nxapi", s.API)
	assert.Equal(t, "N9K-C93180", s.Product)
	assert.Equal(t, []string{"/etc/nodeutils/ref"}, s.Sources)
	assert.Equal(t, "/var/lib/nodeutils.db", s.Store.Path)
	assert.Equal(t, "warning", s.Lint.FailOn)
	assert.Equal(t, []string{"feature-order"}, s.Lint.Enable)
	assert.Equal(t, "switch1.lab", s.Device.Host)
	assert.Equal(t, "secret", s.Device.Password)
	assert.Equal(t, 5*time.Second, s.Device.Timeout)
	// untouched fields keep their defaults
	assert.Equal(t, 22, s.Device.Port)
	assert.Equal(t, "debug", s.Telemetry.Logging.Level)
	assert.Equal(t, "json", s.Telemetry.Logging.Format)
	assert.Equal(t, "nodeutils", s.Telemetry.Metrics.Namespace)
}

func TestLoadCUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "nodeutils.cue", `
api:     "grpc"
product: "N3K"
store: path: ":memory:"
`)

	s, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "grpc", s.API)
	assert.Equal(t, "N3K", s.Product)
	assert.Equal(t, ":memory:", s.Store.Path)
	assert.Equal(t, "error", s.Lint.FailOn)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := testLoader(nil).Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings().API, s.API)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := testLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read settings")
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvAPI:      "netconf",
		EnvProduct:  "N7K",
		EnvSources:  "a.yaml" + string(os.PathListSeparator) + "b",
		EnvStore:    ":memory:",
		EnvLogLevel: "WARN",
	}
	path := writeFile(t, t.TempDir(), "nodeutils.yaml", "api: cli\n")

	s, err := testLoader(env).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "netconf", s.API)
	assert.Equal(t, "N7K", s.Product)
	assert.Equal(t, []string{"a.yaml", "b"}, s.Sources)
	assert.Equal(t, ":memory:", s.Store.Path)
	assert.Equal(t, "warn", s.Telemetry.Logging.Level)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		wantErr string
	}{
		{"unknown field", "s.yaml", "colour: blue\n", "failed to parse settings"},
		{"bad yaml", "s.yaml", "api: [\n", "failed to parse settings"},
		{"bad cue", "s.cue", "api: ", "failed to compile settings"},
		{"struct tag", "s.yaml", "device:\n  port: -1\n", "invalid settings"},
		{"schema", "s.yaml", "api: nx-api\n", "invalid settings"},
		{"fail_on", "s.yaml", "lint:\n  fail_on: never\n", "invalid settings"},
		{"telemetry", "s.yaml", "telemetry:\n  logging:\n    format: xml\n", "invalid telemetry settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Parse(context.Background(), tt.file, []byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := NewLoader().Parse(context.Background(), "s.yaml", []byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestValidateUnsetLists(t *testing.T) {
	l := NewLoader()
	ctx := context.Background()

	require.NoError(t, l.Validate(ctx, DefaultSettings()))

	s := DefaultSettings()
	s.Sources = nil
	s.Lint.Policies = nil
	s.Telemetry.Tracing.Headers = nil
	s.Telemetry.Metrics.DefaultHistogramBuckets = nil
	require.NoError(t, l.Validate(ctx, s))
	assert.Nil(t, s.Sources)
	assert.Nil(t, s.Telemetry.Tracing.Headers)

	s.APIs = []string{"bad-name"}
	assert.Error(t, l.Validate(ctx, s))
}
