package policy

// Built-in policy names.
const (
	PolicyFeatureOrder   = "feature-order"
	PolicyConfigGetToken = "config-get-token"
	PolicyDefaultValue   = "default-value"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		featureOrderPolicy(),
		configGetTokenPolicy(),
		defaultValuePolicy(),
	}
}

// featureOrderPolicy flags features that are not declared in alphabetical
// order within their document. Off unless enabled.
func featureOrderPolicy() Policy {
	return Policy{
		Name:        PolicyFeatureOrder,
		Description: "Features within a document are declared in alphabetical order",
		Severity:    SeverityWarning,
		Enabled:     false,
		Tags:        []string{"style"},
		Rego: `package nodeutils.lint.feature_order

import rego.v1

deny contains violation if {
	some doc in input.documents
	some i, feature in doc.features
	i > 0
	prev := doc.features[i - 1]
	feature.name < prev.name
	violation := {
		"source": doc.source,
		"feature": feature.name,
		"message": sprintf("feature %s is declared after %s", [feature.name, prev.name]),
	}
}
`,
	}
}

// configGetTokenPolicy flags features that extract tokens without ever
// saying which command produces the text.
func configGetTokenPolicy() Policy {
	return Policy{
		Name:        PolicyConfigGetToken,
		Description: "A feature with config_get_token also has config_get",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"correctness"},
		Rego: `package nodeutils.lint.config_get_token

import rego.v1

has_key(tree, key) if {
	walk(tree, [_, node])
	is_object(node)
	object.get(node, key, null) != null
}

deny contains violation if {
	some doc in input.documents
	some feature in doc.features
	has_key(feature.tree, "config_get_token")
	not has_key(feature.tree, "config_get")
	violation := {
		"source": doc.source,
		"feature": feature.name,
		"message": sprintf("feature %s has config_get_token but no config_get", [feature.name]),
	}
}
`,
	}
}

// defaultValuePolicy points out readable features with no default.
func defaultValuePolicy() Policy {
	return Policy{
		Name:        PolicyDefaultValue,
		Description: "A feature with config_get declares a default_value",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"completeness"},
		Rego: `package nodeutils.lint.default_value

import rego.v1

has_key(tree, key) if {
	walk(tree, [_, node])
	is_object(node)
	object.get(node, key, null) != null
}

deny contains violation if {
	some doc in input.documents
	some feature in doc.features
	has_key(feature.tree, "config_get")
	not has_key(feature.tree, "default_value")
	violation := {
		"source": doc.source,
		"feature": feature.name,
		"message": sprintf("feature %s has config_get but no default_value", [feature.name]),
	}
}
`,
	}
}
