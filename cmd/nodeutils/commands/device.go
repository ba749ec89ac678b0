package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/config"
	"github.com/openfroyo/nodeutils/pkg/features"
	"github.com/openfroyo/nodeutils/pkg/node"
	"github.com/openfroyo/nodeutils/pkg/telemetry"
)

// EnvPassword supplies the device password without putting it on the
// command line.
const EnvPassword = "NODEUTILS_PASSWORD"

var (
	deviceHost string
	deviceUser string
)

func addDeviceFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&deviceHost, "host", "H", "", "device hostname or address (overrides settings)")
	cmd.PersistentFlags().StringVarP(&deviceUser, "user", "u", "", "device login user (overrides settings)")
}

func deviceOverrides(s *config.Settings) {
	if deviceHost != "" {
		s.Device.Host = deviceHost
	}
	if deviceUser != "" {
		s.Device.User = deviceUser
	}
	if pw := os.Getenv(EnvPassword); pw != "" {
		s.Device.Password = pw
	}
}

func sshConfig(d config.DeviceSettings) (*node.SSHConfig, error) {
	if d.Host == "" {
		return nil, errors.New("no device host: use --host or device.host in the settings file")
	}
	cfg := node.DefaultSSHConfig(d.Host, d.User)
	if d.Port != 0 {
		cfg.Port = d.Port
	}
	if d.Timeout > 0 {
		cfg.ConnectionTimeout = d.Timeout
	}
	cfg.Password = d.Password
	cfg.PrivateKeyPath = d.KeyFile
	cfg.KnownHostsPath = d.KnownHostsFile
	cfg.InsecureIgnoreHostKey = d.InsecureIgnoreHostKey
	return cfg, nil
}

// withDevice connects to the configured device and runs fn against it.
func withDevice(cmd *cobra.Command, fn func(ctx context.Context, a *app, d *features.Device) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, deviceOverrides)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	ref, err := a.loadReference(ctx)
	if err != nil {
		return err
	}

	cfg, err := sshConfig(a.settings.Device)
	if err != nil {
		return err
	}
	client, err := node.NewSSHClient(cfg,
		node.WithSSHLogger(a.logger),
		node.WithCommandRecorder(a.tel.Metrics),
	)
	if err != nil {
		return err
	}

	spanCtx, span := a.tel.Tracer.StartDeviceSpan(ctx, cfg.Host, cmd.Name())
	err = client.Connect(spanCtx)
	if err == nil {
		defer client.Close()
		err = fn(spanCtx, a, features.NewDevice(client, ref, features.WithLogger(a.logger)))
	}
	telemetry.EndSpan(span, err)

	if err != nil {
		if perr := a.tel.Events.PublishDeviceError(cfg.Host, cmd.Parent().Name(), err); perr != nil {
			a.logger.Debug().Err(perr).Msg("Failed to publish event")
		}
		return err
	}
	return nil
}

type vrfRow struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Shutdown    *bool  `json:"shutdown,omitempty" yaml:"shutdown,omitempty"`
}

func newVrfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vrf",
		Short: "Query VRFs on a device",
	}
	addDeviceFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List VRFs with their description and state",
		Example: `  # NX-OS over SSH
  NODEUTILS_PASSWORD=secret nodeutils vrf list --host n9k-1 --user admin --product N9K-C9396PX`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, func(ctx context.Context, a *app, d *features.Device) error {
				vrfs, err := d.Vrfs(ctx)
				if err != nil {
					return err
				}

				rows := make([]vrfRow, 0, len(vrfs))
				for _, name := range sortedKeys(vrfs) {
					v := vrfs[name]
					row := vrfRow{Name: name}
					if row.Description, err = v.Description(ctx); err != nil {
						return err
					}
					if v.SupportsShutdown() {
						shut, err := v.Shutdown(ctx)
						if err != nil {
							return err
						}
						row.Shutdown = &shut
					}
					rows = append(rows, row)
				}

				if jsonOutput {
					return render(cmd.OutOrStdout(), rows)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSHUTDOWN\tDESCRIPTION")
				for _, r := range rows {
					state := "-"
					if r.Shutdown != nil {
						state = fmt.Sprint(*r.Shutdown)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, state, r.Description)
				}
				return w.Flush()
			})
		},
	})

	return cmd
}

type communityRow struct {
	Name  string `json:"name" yaml:"name"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	ACL   string `json:"acl,omitempty" yaml:"acl,omitempty"`
}

func newSnmpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snmp",
		Short: "Query SNMP settings on a device",
	}
	addDeviceFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List SNMP communities with their group and ACL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(cmd, func(ctx context.Context, a *app, d *features.Device) error {
				communities, err := d.Communities(ctx)
				if err != nil {
					return err
				}

				rows := make([]communityRow, 0, len(communities))
				for _, name := range sortedKeys(communities) {
					c := communities[name]
					row := communityRow{Name: name}
					if row.Group, err = c.Group(ctx); err != nil {
						return err
					}
					if row.ACL, err = c.ACL(ctx); err != nil {
						return err
					}
					rows = append(rows, row)
				}

				if jsonOutput {
					return render(cmd.OutOrStdout(), rows)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "COMMUNITY\tGROUP\tACL")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Group, r.ACL)
				}
				return w.Flush()
			})
		},
	})

	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
