package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
)

type validateReport struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	API      string   `json:"api" yaml:"api"`
	Product  string   `json:"product" yaml:"product"`
	Sources  []string `json:"sources" yaml:"sources"`
	Features int      `json:"features" yaml:"features"`
	Class    string   `json:"class,omitempty" yaml:"class,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate command reference documents",
		Long: `Load every command reference document and report the first violation.

This command checks:
  - YAML syntax and duplicate keys
  - Attribute names and value kinds
  - API and pattern selector syntax
  - Duplicate features across documents`,
		Example: `  # Validate the embedded reference
  nodeutils validate

  # Validate a directory of documents
  nodeutils validate --source ./reference

  # Machine-readable result
  nodeutils validate --source ./reference --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			report := validateReport{
				API:     a.settings.API,
				Product: a.settings.Product,
				Sources: a.settings.Sources,
			}

			ref, err := a.loadReference(ctx)
			if err != nil {
				var le *cmdref.LoadError
				if !errors.As(err, &le) {
					return err
				}
				report.Class = string(le.Class)
				report.Error = err.Error()
				if rerr := render(cmd.OutOrStdout(), report); rerr != nil {
					return rerr
				}
				return &exitError{code: 2, err: err}
			}

			report.Valid = true
			report.Features = ref.Len()
			report.Sources = ref.Sources()
			if jsonOutput {
				return render(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d features from %d sources\n", ref.Len(), len(ref.Sources()))
			return nil
		},
	}

	return cmd
}
