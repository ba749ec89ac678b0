package features_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/nodeutils/pkg/features"
	"github.com/openfroyo/nodeutils/pkg/node"
	"github.com/openfroyo/nodeutils/pkg/node/nodetest"
)

const nxosVrfs = `vrf context management
  ip route 0.0.0.0/0 10.0.0.1
vrf context red
  description tested by unit tests
  shutdown
vrf context blue
`

func newDevice(t *testing.T, api, product string) (*features.Device, *nodetest.Client) {
	t.Helper()

	ref, err := features.DefaultReference(api, product)
	require.NoError(t, err)

	client := nodetest.New()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	return features.NewDevice(client, ref, features.WithLogger(logger)), client
}

func TestVrfs(t *testing.T) {
	d, client := newDevice(t, "cli", "N9K-C9396PX")
	client.SetOutput("show running-config vrf all", nxosVrfs)

	vrfs, err := d.Vrfs(context.Background())
	require.NoError(t, err)
	require.Len(t, vrfs, 3)
	assert.Contains(t, vrfs, "management")
	assert.Equal(t, "red", vrfs["red"].Name())
}

func TestVrfsEmpty(t *testing.T) {
	d, _ := newDevice(t, "grpc", "XRv9k")

	vrfs, err := d.Vrfs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vrfs)
}

func TestNewVrfCreateAndDestroy(t *testing.T) {
	ctx := context.Background()
	d, client := newDevice(t, "cli", "N9K-C9396PX")

	v, err := d.NewVrf(ctx, "test_vrf", true)
	require.NoError(t, err)
	require.NoError(t, v.Destroy(ctx))

	assert.Equal(t, [][]string{
		{"vrf context test_vrf"},
		{"no vrf context test_vrf"},
	}, client.Configs())
}

func TestNewVrfGrpc(t *testing.T) {
	ctx := context.Background()
	d, client := newDevice(t, "grpc", "XRv9k")

	_, err := d.NewVrf(ctx, "green", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"vrf green"}, client.ConfigLines())
}

func TestNewVrfInvalidName(t *testing.T) {
	d, client := newDevice(t, "cli", "N9K-C9396PX")

	_, err := d.NewVrf(context.Background(), "", true)
	assert.ErrorIs(t, err, features.ErrInvalidName)

	_, err = d.NewVrf(context.Background(), strings.Repeat("a", features.MaxVrfNameLen+1), true)
	assert.ErrorIs(t, err, features.ErrInvalidName)

	_, err = d.NewVrf(context.Background(), strings.Repeat("a", features.MaxVrfNameLen), false)
	assert.NoError(t, err)

	assert.Empty(t, client.Configs())
}

func TestVrfDescription(t *testing.T) {
	ctx := context.Background()
	d, client := newDevice(t, "cli", "N9K-C9396PX")
	client.SetOutput("show running-config vrf all", nxosVrfs)

	red, err := d.NewVrf(ctx, "red", false)
	require.NoError(t, err)
	desc, err := red.Description(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tested by unit tests", desc)

	blue, err := d.NewVrf(ctx, "blue", false)
	require.NoError(t, err)
	desc, err = blue.Description(ctx)
	require.NoError(t, err)
	assert.Equal(t, blue.DefaultDescription(), desc)
	assert.Equal(t, "", desc)

	require.NoError(t, blue.SetDescription(ctx, "  new  "))
	require.NoError(t, blue.SetDescription(ctx, blue.DefaultDescription()))
	assert.Equal(t, [][]string{
		{"vrf context blue", "description new"},
		{"vrf context blue", "no description"},
	}, client.Configs())
}

func TestVrfShutdown(t *testing.T) {
	ctx := context.Background()
	d, client := newDevice(t, "nxapi", "N9K-C9396PX")
	client.SetOutput("show running-config vrf all", nxosVrfs)

	red, err := d.NewVrf(ctx, "red", false)
	require.NoError(t, err)
	shut, err := red.Shutdown(ctx)
	require.NoError(t, err)
	assert.True(t, shut)

	blue, err := d.NewVrf(ctx, "blue", false)
	require.NoError(t, err)
	shut, err = blue.Shutdown(ctx)
	require.NoError(t, err)
	assert.False(t, shut)

	def, ok := blue.DefaultShutdown()
	require.True(t, ok)
	assert.False(t, def)
	assert.True(t, blue.SupportsShutdown())

	require.NoError(t, red.SetShutdown(ctx, def))
	require.NoError(t, blue.SetShutdown(ctx, true))
	assert.Equal(t, [][]string{
		{"vrf context red", "no shutdown"},
		{"vrf context blue", "shutdown"},
	}, client.Configs())
}

func TestVrfShutdownUnsupported(t *testing.T) {
	ctx := context.Background()
	d, client := newDevice(t, "grpc", "XRv9k")

	v, err := d.NewVrf(ctx, "test_shutdown", false)
	require.NoError(t, err)

	shut, err := v.Shutdown(ctx)
	require.NoError(t, err)
	assert.False(t, shut)

	_, ok := v.DefaultShutdown()
	assert.False(t, ok)
	assert.False(t, v.SupportsShutdown())

	err = v.SetShutdown(ctx, true)
	assert.ErrorIs(t, err, node.ErrUnsupported)
	assert.Empty(t, client.Shows())
	assert.Empty(t, client.Configs())
}
