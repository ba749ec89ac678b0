package policy

import (
	"context"
	"testing"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	return eng
}

func testReference(t *testing.T, doc string) *cmdref.Reference {
	t.Helper()
	ref, err := cmdref.NewFromSources("cli", "N9K", []cmdref.Source{{Name: "vrf.yaml", Data: []byte(doc)}})
	require.NoError(t, err)
	return ref
}

func violationsFor(result *Result, policy string) []Violation {
	var out []Violation
	for _, v := range result.Violations {
		if v.Policy == policy {
			out = append(out, v)
		}
	}
	return out
}

func TestNewEngine(t *testing.T) {
	eng := testEngine(t)

	policies := eng.ListPolicies()
	require.Len(t, policies, 3)
	assert.Equal(t, PolicyConfigGetToken, policies[0].Name)
	assert.Equal(t, PolicyDefaultValue, policies[1].Name)
	assert.Equal(t, PolicyFeatureOrder, policies[2].Name)

	order, err := eng.GetPolicy(PolicyFeatureOrder)
	require.NoError(t, err)
	assert.False(t, order.Enabled)
	assert.Equal(t, SeverityWarning, order.Severity)

	_, err = eng.GetPolicy("missing")
	assert.Error(t, err)
}

func TestEvaluateConfigGetToken(t *testing.T) {
	eng := testEngine(t)
	ref := testReference(t, `
vrf:
  config_get: "show running vrf"
  config_get_token: '/^vrf context (\S+)/'
description:
  cli:
    config_get_token: '/^description (.*)/'
  default_value: ""
`)

	result, err := eng.Evaluate(context.Background(), ref)
	require.NoError(t, err)

	got := violationsFor(result, PolicyConfigGetToken)
	require.Len(t, got, 1)
	assert.Equal(t, "description", got[0].Feature)
	assert.Equal(t, "vrf.yaml", got[0].Source)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.True(t, result.Failed(SeverityError))
	assert.Empty(t, result.Warnings)
}

func TestEvaluateDefaultValue(t *testing.T) {
	eng := testEngine(t)
	ref := testReference(t, `
shutdown:
  config_get: "show running vrf"
  default_value: false
description:
  config_get: "show running vrf"
`)

	result, err := eng.Evaluate(context.Background(), ref)
	require.NoError(t, err)

	got := violationsFor(result, PolicyDefaultValue)
	require.Len(t, got, 1)
	assert.Equal(t, "description", got[0].Feature)
	assert.Equal(t, SeverityInfo, got[0].Severity)
	assert.False(t, result.Failed(SeverityWarning))
	assert.True(t, result.Failed(SeverityInfo))
	assert.Equal(t, map[Severity]int{SeverityInfo: 1}, result.CountBySeverity())
}

func TestEvaluateFeatureOrder(t *testing.T) {
	eng := testEngine(t)
	ref := testReference(t, `
shutdown:
  default_value: false
description:
  default_value: ""
`)

	result, err := eng.Evaluate(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, violationsFor(result, PolicyFeatureOrder))
	assert.NotContains(t, result.EvaluatedPolicies, PolicyFeatureOrder)

	require.NoError(t, eng.EnablePolicy(PolicyFeatureOrder))
	result, err = eng.Evaluate(context.Background(), ref)
	require.NoError(t, err)

	got := violationsFor(result, PolicyFeatureOrder)
	require.Len(t, got, 1)
	assert.Equal(t, "description", got[0].Feature)
	assert.Contains(t, got[0].Message, "declared after shutdown")

	require.NoError(t, eng.DisablePolicy(PolicyFeatureOrder))
	assert.Error(t, eng.EnablePolicy("missing"))
}

func TestEvaluateCleanReference(t *testing.T) {
	eng := testEngine(t)
	ref := testReference(t, `
description:
  config_get: "show running vrf"
  config_get_token: '/^description (.*)/'
  default_value: ""
`)

	result, err := eng.Evaluate(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
	assert.Equal(t, []string{PolicyConfigGetToken, PolicyDefaultValue}, result.EvaluatedPolicies)
}

func TestAddPolicy(t *testing.T) {
	eng := testEngine(t)

	err := eng.AddPolicy(context.Background(), Policy{
		Name:     "no-grpc",
		Severity: SeverityError,
		Enabled:  true,
		Rego: `package custom.nogrpc

import rego.v1

deny contains msg if {
	input.api == "grpc"
	msg := "grpc is not allowed"
}
`,
	})
	require.NoError(t, err)

	result, err := eng.EvaluateInput(context.Background(), &Input{API: "grpc"})
	require.NoError(t, err)
	got := violationsFor(result, "no-grpc")
	require.Len(t, got, 1)
	assert.Equal(t, "grpc is not allowed", got[0].Message)
	assert.Empty(t, got[0].Feature)

	result, err = eng.EvaluateInput(context.Background(), &Input{API: "cli"})
	require.NoError(t, err)
	assert.Empty(t, violationsFor(result, "no-grpc"))
}

func TestAddPolicyErrors(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	assert.Error(t, eng.AddPolicy(ctx, Policy{Name: "broken", Rego: "package x\n\ndeny contains"}))
	assert.Error(t, eng.AddPolicy(ctx, Policy{Rego: "package x"}))
	assert.Error(t, eng.AddPolicy(ctx, Policy{Name: "sev", Severity: "fatal", Rego: "package x"}))
}

func TestSeverityOverrideFromResult(t *testing.T) {
	v := createViolation(&Policy{Name: "p", Severity: SeverityInfo}, map[string]interface{}{
		"message":  "m",
		"severity": "error",
		"feature":  "f",
	})
	assert.Equal(t, SeverityError, v.Severity)
	assert.Equal(t, "f", v.Feature)

	v = createViolation(&Policy{Name: "p", Severity: SeverityInfo}, map[string]interface{}{"severity": "bogus"})
	assert.Equal(t, SeverityInfo, v.Severity)
}

func TestEvaluateCancelled(t *testing.T) {
	eng := testEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.EvaluateInput(ctx, &Input{})
	assert.ErrorIs(t, err, context.Canceled)
}

func documentWith(feature string, tree map[string]any) cmdref.Document {
	return cmdref.Document{
		Source:   "test.yaml",
		Features: []cmdref.FeatureDocument{{Name: feature, Tree: tree}},
	}
}
