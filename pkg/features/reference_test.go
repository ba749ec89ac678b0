package features_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
	"github.com/openfroyo/nodeutils/pkg/features"
)

func TestDefaultReferenceLoads(t *testing.T) {
	for _, api := range []string{"cli", "nxapi", "grpc"} {
		t.Run(api, func(t *testing.T) {
			ref, err := features.DefaultReference(api, "N9K-C9396PX")
			require.NoError(t, err)
			assert.True(t, ref.Has("vrf_all"))
			assert.True(t, ref.Has("snmp_community_acl"))
			assert.Equal(t, []string{"reference/snmp_community.yaml", "reference/vrf.yaml"}, ref.Sources())
		})
	}
}

func TestDefaultReferencePlatformDifferences(t *testing.T) {
	cli, err := features.DefaultReference("cli", "N9K-C9396PX")
	require.NoError(t, err)
	grpc, err := features.DefaultReference("grpc", "XRv9k")
	require.NoError(t, err)

	get, ok := cli.MustLookup("vrf", "vrf_all").ConfigGet()
	require.True(t, ok)
	assert.Equal(t, "show running-config vrf all", get)

	get, ok = grpc.MustLookup("vrf", "vrf_all").ConfigGet()
	require.True(t, ok)
	assert.Equal(t, "show running-config vrf", get)

	assert.True(t, cli.MustLookup("vrf", "vrf_shutdown").Has(cmdref.AttrConfigSet))
	assert.Zero(t, grpc.MustLookup("vrf", "vrf_shutdown").Len())
}
