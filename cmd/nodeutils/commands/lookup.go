package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/telemetry"
)

func newLookupCommand() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "lookup <feature>",
		Short: "Print the resolved record of a feature",
		Long: `Resolve one feature for the configured API flavor and product and
print its attributes.`,
		Example: `  # Resolve vrf_description for NX-API on a Nexus 9000
  nodeutils lookup vrf_description --api nxapi --product N9K-C9396PX

  # As JSON
  nodeutils lookup vrf_shutdown --json`,
		Args: cobra.ExactArgs(1),
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

			_, span := a.tel.Tracer.StartLookupSpan(ctx, namespace, args[0])
			rec, err := ref.Lookup(namespace, args[0])
			telemetry.EndSpan(span, err)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), rec.Map())
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "namespace for log and trace context")

	return cmd
}
