// Package policy lints command reference documents with Open Policy Agent.
//
// Policies are Rego modules whose package defines a deny set. Each element
// is either a message string or an object:
//
//	{"message": "...", "feature": "vrf", "source": "vrf.yaml", "severity": "error"}
//
// The input document is Input: the API flavor, the product and every loaded
// document with its features in declaration order. Each feature carries the
// attribute tree as written, selectors included:
//
//	{
//	  "api": "cli",
//	  "product": "N9K-C93180",
//	  "documents": [
//	    {"source": "vrf.yaml", "features": [
//	      {"name": "description", "line": 3, "index": 0,
//	       "tree": {"config_get": "show running vrf", "grpc": {...}}}
//	    ]}
//	  ]
//	}
//
// # Built-in Policies
//
//   - feature-order (warning, disabled): features sorted by name per document
//   - config-get-token (error): config_get_token requires config_get
//   - default-value (info): config_get should come with a default_value
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"/etc/nodeutils/policies"}); err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, ref)
//	if err != nil {
//	    return err
//	}
//	if result.Failed(policy.SeverityError) {
//	    ...
//	}
//
// Custom .rego files may set their severity and default state with header
// comments, see Loader.
package policy
