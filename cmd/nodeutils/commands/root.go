package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	apiFlag    string
	product    string
	sources    []string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

// exitError carries a process exit code for failures that are results
// rather than malfunctions, such as lint violations.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nodeutils",
		Short: "Command reference resolution for network nodes",
		Long: `nodeutils loads command reference documents, resolves per-feature
attribute records for an API flavor and product, and drives network nodes
with them.

Features:
  - Validation of reference documents with classified errors
  - Resolution of api and product overrides per feature
  - Lint policies (OPA/rego) over reference documents
  - Snapshots of resolved records with diffing
  - Hot reload with Prometheus metrics
  - VRF and SNMP community queries over SSH`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path (default nodeutils.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "API flavor to resolve for (cli, nxapi, grpc, ...)")
	rootCmd.PersistentFlags().StringVar(&product, "product", "", "product identifier, e.g. N9K-C9396PX")
	rootCmd.PersistentFlags().StringArrayVarP(&sources, "source", "s", nil, "reference file, directory or glob (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newLookupCommand())
	rootCmd.AddCommand(newDumpCommand())
	rootCmd.AddCommand(newLintCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVrfCommand())
	rootCmd.AddCommand(newSnmpCommand())

	return rootCmd
}
