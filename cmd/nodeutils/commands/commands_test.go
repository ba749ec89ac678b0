package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/nodeutils/pkg/config"
	"github.com/openfroyo/nodeutils/pkg/stores"
)

const testDoc = `
vrf_description:
  default_value: ""
  nxapi:
    config_get: show running-config vrf all
    config_get_token: ['/^vrf context %s$/', '/^description (.*)$/']
    /N7K/:
      default_value: n7k
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	root := newRootCommand("test", "none", "today")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "vrf.yaml", testDoc)

	out, err := run(t, "validate", "--source", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 features from 1 sources")
}

func TestValidateCommandEmbedded(t *testing.T) {
	out, err := run(t, "validate", "--json")
	require.NoError(t, err)

	var report validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Greater(t, report.Features, 0)
}

func TestValidateCommandRejects(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.yaml", testDoc)
	writeDoc(t, dir, "b.yaml", testDoc)

	out, err := run(t, "validate", "--source", dir, "--json")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))

	var report validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	assert.Equal(t, "duplicate_feature", report.Class)
}

func TestLookupCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "vrf.yaml", testDoc)

	out, err := run(t, "lookup", "vrf_description", "--source", path, "--api", "nxapi", "--product", "N7K-C7010", "--json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "n7k", rec["default_value"])
	assert.Equal(t, "show running-config vrf all", rec["config_get"])

	out, err = run(t, "lookup", "vrf_description", "--source", path, "--api", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, `default_value: ""`)
	assert.NotContains(t, out, "config_get")

	_, err = run(t, "lookup", "nope", "--source", path)
	assert.Error(t, err)
}

func TestDumpCommand(t *testing.T) {
	out, err := run(t, "dump", "--api", "grpc", "--json", "--feature", "vrf_all", "--feature", "vrf_shutdown")
	require.NoError(t, err)

	var dump map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dump))
	require.Len(t, dump, 2)
	assert.Equal(t, "show running-config vrf", dump["vrf_all"]["config_get"])
	assert.Empty(t, dump["vrf_shutdown"])
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.yaml", "orphan_token:\n  config_get_token: '/x/'\n")

	out, err := run(t, "lint", "--source", dir)
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, out, "config-get-token")

	_, err = run(t, "lint", "--source", dir, "--disable", "config-get-token")
	assert.NoError(t, err)
}

func TestSnapshotAndDiffCommands(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "vrf.yaml", testDoc)
	t.Setenv("NODEUTILS_STORE", filepath.Join(dir, "snapshots.db"))

	out, err := run(t, "snapshot", "--source", path, "--api", "nxapi", "--label", "baseline", "--json")
	require.NoError(t, err)

	var snap stores.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "baseline", snap.Label)
	assert.Equal(t, 1, snap.FeatureCount)

	out, err = run(t, "snapshot", "list", "--api", "nxapi")
	require.NoError(t, err)
	assert.Contains(t, out, snap.ID)

	out, err = run(t, "diff", snap.ID, "--source", path, "--api", "nxapi")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes")

	out, err = run(t, "diff", "latest", "--source", path, "--api", "nxapi")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes")

	out, err = run(t, "diff", snap.ID, "--source", path, "--api", "nxapi", "--product", "N7K-C7010", "--exit-code")
	require.Error(t, err)
	assert.Equal(t, 4, ExitCode(err))
	assert.Contains(t, out, "changed vrf_description.default_value")

	_, err = run(t, "snapshot", "delete", snap.ID)
	require.NoError(t, err)
	_, err = run(t, "diff", snap.ID, "--source", path)
	assert.ErrorIs(t, err, stores.ErrNotFound)
}

func TestDeviceCommandRequiresHost(t *testing.T) {
	t.Setenv(EnvPassword, "")

	for _, args := range [][]string{{"vrf", "list"}, {"snmp", "list"}} {
		_, err := run(t, args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no device host")
		assert.Equal(t, 1, ExitCode(err))
	}
}

func TestSSHConfigFromSettings(t *testing.T) {
	d := config.DefaultSettings().Device
	d.Host = "sw1.example.net"
	d.User = "admin"
	d.Port = 2222
	d.Password = "secret"
	d.InsecureIgnoreHostKey = true

	cfg, err := sshConfig(d)
	require.NoError(t, err)
	assert.Equal(t, "sw1.example.net:2222", cfg.Address())
	assert.Equal(t, d.Timeout, cfg.ConnectionTimeout)
	assert.Equal(t, "secret", cfg.Password)
	assert.NoError(t, cfg.Validate())
}
