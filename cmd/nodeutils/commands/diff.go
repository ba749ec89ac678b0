package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/stores"
)

// latestSnapshot selects the newest snapshot for the configured API flavor
// and product.
const latestSnapshot = "latest"

func newDiffCommand() *cobra.Command {
	var (
		against  string
		exitCode bool
	)

	cmd := &cobra.Command{
		Use:   "diff <snapshot-id|latest>",
		Short: "Compare a stored snapshot with the current resolution",
		Long: `Compare the records of a stored snapshot with the records resolved from
the current documents, or with a second snapshot.

Each line is one added or removed feature, or one changed attribute.`,
		Example: `  # What changed since the baseline
  nodeutils diff 0b6f6d8e-1c1e-4d7a-9d55-4a3c1d1d2b8a

  # Against the newest snapshot for this api/product
  nodeutils diff latest --api nxapi --product N9K-C9396PX

  # Between two snapshots, failing when they differ
  nodeutils diff <old-id> --against <new-id> --exit-code`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			load := func(id string) (*stores.Snapshot, error) {
				if id == latestSnapshot {
					return store.LatestSnapshot(ctx, a.settings.API, a.settings.Product)
				}
				return store.GetSnapshot(ctx, id)
			}

			base, err := load(args[0])
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", args[0], err)
			}

			var current *stores.Snapshot
			if against != "" {
				current, err = load(against)
				if err != nil {
					return fmt.Errorf("snapshot %s: %w", against, err)
				}
			} else {
				ref, err := a.loadReference(ctx)
				if err != nil {
					return err
				}
				if current, err = stores.NewSnapshot(ref, ""); err != nil {
					return err
				}
			}

			changes := stores.Diff(base, current)
			a.logger.Debug().
				Str("base", base.ID).
				Int("changes", len(changes)).
				Msg("Snapshot diff computed")

			if jsonOutput {
				if changes == nil {
					changes = []stores.Change{}
				}
				if err := render(cmd.OutOrStdout(), changes); err != nil {
					return err
				}
			} else if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes")
			} else {
				for _, c := range changes {
					fmt.Fprintln(cmd.OutOrStdout(), c.String())
				}
			}

			if exitCode && len(changes) > 0 {
				return &exitError{code: 4, err: fmt.Errorf("%d changes since snapshot %s", len(changes), base.ID)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "compare with this snapshot instead of the current documents")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "exit with status 4 when there are changes")

	return cmd
}
