package commands

import (
	"github.com/spf13/cobra"
)

func newDumpCommand() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every resolved feature",
		Example: `  # Everything the gRPC flavor sees on an XRv9k
  nodeutils dump --api grpc --product XRv9k

  # A subset
  nodeutils dump --feature vrf_all --feature vrf_shutdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			ref, err := a.loadReference(ctx)
			if err != nil {
				return err
			}

			out := make(map[string]map[string]any)
			if len(only) == 0 {
				for name, rec := range ref.ResolveAll() {
					out[name] = rec.Map()
				}
			} else {
				for _, name := range only {
					rec, err := ref.Lookup("", name)
					if err != nil {
						return err
					}
					out[name] = rec.Map()
				}
			}

			a.logger.Debug().Int("features", len(out)).Msg("Dumping resolved features")
			return render(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringSliceVarP(&only, "feature", "f", nil, "limit output to these features")

	return cmd
}
