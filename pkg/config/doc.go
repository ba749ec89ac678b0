// Package config loads nodeutils tool settings.
//
// Settings come from a YAML file (nodeutils.yaml) or a CUE file
// (nodeutils.cue) layered over DefaultSettings, then from environment
// variables:
//
//	NODEUTILS_API       API flavor (cli, nxapi, grpc, ...)
//	NODEUTILS_PRODUCT   product identifier for pattern selectors
//	NODEUTILS_SOURCES   command reference paths, os.PathListSeparator separated
//	NODEUTILS_STORE     snapshot database path
//	LOG_LEVEL           log level
//
// The result is checked twice: by validator struct tags and by the
// built-in CUE #Settings schema held in a SchemaRegistry. Custom schemas
// can be registered with RegisterSchema and checked with
// ValidateAgainstSchema.
//
// # Usage Example
//
//	loader := config.NewLoader()
//	settings, err := loader.Load(ctx, "nodeutils.yaml")
//	if err != nil {
//	    return err
//	}
//	ref, err := cmdref.New(settings.API, settings.Product, settings.Sources)
package config
