package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/stores"
)

func (a *app) openStore(cmd *cobra.Command) (*stores.SQLiteStore, error) {
	logger := a.logger
	return stores.Open(cmd.Context(), stores.Config{
		Path:   a.settings.Store.Path,
		Logger: &logger,
	})
}

func newSnapshotCommand() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save the resolved records to the snapshot store",
		Long: `Resolve every feature and store the records, so a later resolution can
be compared with "nodeutils diff".`,
		Example: `  # Record a baseline for NX-API on a Nexus 9000
  nodeutils snapshot --api nxapi --product N9K-C9396PX --label baseline

  # List stored snapshots
  nodeutils snapshot list`,
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

			snap, err := stores.NewSnapshot(ref, label)
			if err != nil {
				return err
			}

			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveSnapshot(ctx, snap); err != nil {
				return err
			}
			a.tel.Metrics.RecordSnapshotSaved()
			if err := a.tel.Events.PublishSnapshotSaved(snap.ID, snap.FeatureCount); err != nil {
				a.logger.Debug().Err(err).Msg("Failed to publish event")
			}

			if jsonOutput {
				snap.Records = nil
				return render(cmd.OutOrStdout(), snap)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %s (%d features)\n", snap.ID, snap.FeatureCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "snapshot label")

	cmd.AddCommand(newSnapshotListCommand())
	cmd.AddCommand(newSnapshotDeleteCommand())

	return cmd
}

func newSnapshotListCommand() *cobra.Command {
	var (
		all   bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Long: `List snapshots, newest first. By default only snapshots for the
configured API flavor and product are shown.`,
		Args: cobra.NoArgs,
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

			opts := stores.ListOptions{Limit: limit}
			if !all {
				opts.API = a.settings.API
				opts.Product = a.settings.Product
			}
			snaps, err := store.ListSnapshots(ctx, opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				return render(cmd.OutOrStdout(), snaps)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tAPI\tPRODUCT\tFEATURES\tCREATED")
			for _, s := range snaps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Label, s.API, s.Product, s.FeatureCount, s.CreatedAt.Local().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list snapshots for every API flavor and product")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots")

	return cmd
}

func newSnapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
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

			if err := store.DeleteSnapshot(ctx, args[0]); err != nil {
				return err
			}
			a.logger.Info().Str("snapshot", args[0]).Msg("Snapshot deleted")
			return nil
		},
	}
}
