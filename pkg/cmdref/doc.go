// Package cmdref loads command reference documents and resolves per-feature
// attribute records for one API flavor and product.
//
// A command reference is a set of YAML documents whose top-level keys are
// feature names. Each feature holds attributes (config_get, config_set,
// default_value, ...) plus override branches selected by API flavor, by a
// /pattern/ matched against the product identifier, or by else.
//
// # Document format
//
//	vrf_description:
//	  default_value: ""
//	  cli:
//	    config_get: show running vrf all
//	    config_get_token: ['/^vrf context %s$/', '/^description (.*)$/']
//	    config_set: ["vrf context %s", "description %s"]
//	  grpc:
//	    /N9K/:
//	      config_set: ["vrf context %s", "description %s"]
//	    else:
//	      default_value: "none"
//
// Scalars tagged !regexp are compiled into regular expressions:
//
//	test_config_get_regex: !regexp '/^feature bgp$/'
//
// # Loading
//
// New reads every document, rejects the whole set on the first violation and
// returns a *LoadError classed as one of the Class constants. errors.Is
// matches each class against its sentinel:
//
//	ref, err := cmdref.New("nxapi", "N9K-C9396PX", []string{"reference/"})
//	if errors.Is(err, cmdref.ErrDuplicateFeature) {
//	    ...
//	}
//
// # Resolution
//
// Lookup flattens a feature for the reference's context. Literals at the
// feature root are the baseline; the branch for the API flavor overrides them,
// and inside that branch the first matching pattern (or else) overrides again,
// down to the deepest applicable level. Results are cached per feature.
//
//	rec, err := ref.Lookup("vrf", "vrf_description")
//	get, _ := rec.ConfigGet()
//
// Reloader keeps a Reference current while its documents are edited and
// never replaces a valid Reference with an invalid one.
package cmdref
