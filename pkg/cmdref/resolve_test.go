package cmdref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cascadeDoc = `
name:
  default_value: generic
  nxapi:
    default_value: NXAPI base
    /N7K/:
      default_value: NXAPI N7K
    /N9K/:
      default_value: NXAPI N9K
  grpc:
    /XRv9k/:
      default_value: gRPC XRv9k
    else:
      default_value: gRPC base
`

func TestCascade(t *testing.T) {
	tests := []struct {
		api     string
		product string
		want    string
	}{
		{"", "", "generic"},
		{"NXAPI", "N9K-C9396PX", "NXAPI N9K"},
		{"NXAPI", "N7K-C7010", "NXAPI N7K"},
		{"NXAPI", "N3K-C3064PQ-10GE", "NXAPI base"},
		{"gRPC", "XRv9k", "gRPC XRv9k"},
		{"gRPC", "", "gRPC base"},
		{"cli", "N9K-C9396PX", "generic"},
		{"", "N9K-C9396PX", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.api+"/"+tt.product, func(t *testing.T) {
			ref, err := NewFromSources(tt.api, tt.product, sources(cascadeDoc))
			require.NoError(t, err)

			rec, err := ref.Lookup("test", "name")
			require.NoError(t, err)

			dv, ok := rec.DefaultValue()
			require.True(t, ok)
			assert.Equal(t, tt.want, dv.Str())
		})
	}
}

func TestResolveInheritsUnchangedKeys(t *testing.T) {
	ref, err := NewFromSources("cli", "N9K-C93180", sources(`
name:
  config_get: show running
  default_value: base
  cli:
    config_set: ["feature x"]
    /N9K/:
      default_value: n9k
`))
	require.NoError(t, err)

	rec := ref.MustLookup("", "name")
	get, _ := rec.ConfigGet()
	assert.Equal(t, "show running", get)
	set, _ := rec.ConfigSet()
	assert.Equal(t, []string{"feature x"}, set)
	dv, _ := rec.DefaultValue()
	assert.Equal(t, "n9k", dv.Str())
}

func TestResolveFirstPatternWins(t *testing.T) {
	ref, err := NewFromSources("cli", "N9K-C9396PX", sources(`
name:
  cli:
    /N9K-C93/:
      default_value: specific
    /N9K/:
      default_value: broad
`))
	require.NoError(t, err)
	dv, _ := ref.MustLookup("", "name").DefaultValue()
	assert.Equal(t, "specific", dv.Str())

	ref, err = NewFromSources("cli", "N9K-C9396PX", sources(`
name:
  cli:
    /N9K/:
      default_value: broad
    /N9K-C93/:
      default_value: specific
`))
	require.NoError(t, err)
	dv, _ = ref.MustLookup("", "name").DefaultValue()
	assert.Equal(t, "broad", dv.Str())
}

func TestResolvePatternBeatsElseRegardlessOfOrder(t *testing.T) {
	ref, err := NewFromSources("cli", "N5K-C5672", sources(`
name:
  cli:
    else:
      default_value: other
    /N5K/:
      default_value: n5k
`))
	require.NoError(t, err)
	dv, _ := ref.MustLookup("", "name").DefaultValue()
	assert.Equal(t, "n5k", dv.Str())
}

func TestResolveNestedPatterns(t *testing.T) {
	doc := `
name:
  cli:
    /N9K/:
      default_value: n9k
      /C93180/:
        default_value: n9k-93180
      else:
        default_value: n9k-other
`
	tests := []struct {
		product string
		want    string
	}{
		{"N9K-C93180YC", "n9k-93180"},
		{"N9K-C9504", "n9k-other"},
	}
	for _, tt := range tests {
		ref, err := NewFromSources("cli", tt.product, sources(doc))
		require.NoError(t, err)
		dv, _ := ref.MustLookup("", "name").DefaultValue()
		assert.Equal(t, tt.want, dv.Str(), tt.product)
	}

	ref, err := NewFromSources("cli", "N7K", sources(doc))
	require.NoError(t, err)
	_, ok := ref.MustLookup("", "name").DefaultValue()
	assert.False(t, ok)
}

func TestResolveWithoutSelectorsIsIdentity(t *testing.T) {
	doc := `
name:
  default_value: false
  config_get: show running
  config_set: ["a", "b"]
`
	contexts := [][2]string{
		{"", ""},
		{"cli", "N9K"},
		{"nxapi", "N3K"},
		{"grpc", "XRv9k"},
		{"netconf", ""},
	}

	var first map[string]any
	for _, c := range contexts {
		ref, err := NewFromSources(c[0], c[1], sources(doc))
		require.NoError(t, err)
		got := ref.MustLookup("", "name").Map()
		assert.Equal(t, map[string]any{
			"default_value": false,
			"config_get":    "show running",
			"config_set":    []any{"a", "b"},
		}, got)
		if first == nil {
			first = got
		}
		assert.Equal(t, first, got)
	}
}

func TestResolveDirect(t *testing.T) {
	n := newNode(1)
	n.Attrs[AttrDefaultValue] = StringValue("root")

	cli := newNode(2)
	cli.Attrs[AttrConfigGet] = StringValue("show")
	n.APIs["cli"] = cli

	got := Resolve(n, "CLI", "")
	assert.Len(t, got, 2)
	assert.Equal(t, "root", got[AttrDefaultValue].Str())
	assert.Equal(t, "show", got[AttrConfigGet].Str())

	got = Resolve(n, "", "")
	assert.Len(t, got, 1)

	// resolution does not mutate the tree
	assert.Len(t, n.Attrs, 1)
}
