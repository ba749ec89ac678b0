package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
	"github.com/openfroyo/nodeutils/pkg/config"
	"github.com/openfroyo/nodeutils/pkg/policy"
)

func newWatchCommand() *cobra.Command {
	var (
		debounce time.Duration
		lint     bool
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload reference documents on change and serve metrics",
		Long: `Watch the configured sources and rebuild the command reference whenever
a document changes. A rejected rebuild keeps the previous reference and is
logged with its error class. Prometheus metrics are served while watching.`,
		Example: `  # Watch a directory, serving metrics on :9464
  nodeutils watch --source ./reference

  # Lint every accepted reload
  nodeutils watch --source ./reference --lint --listen 127.0.0.1:9100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, func(s *config.Settings) {
				if listen != "" {
					s.Telemetry.Metrics.ListenAddress = listen
				}
			})
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.close(shutdownCtx)
			}()

			s := a.settings
			if len(s.Sources) == 0 {
				return errors.New("watch needs --source or sources in the settings file")
			}

			var engine *policy.Engine
			if lint {
				if engine, err = a.lintEngine(ctx, nil, nil, nil); err != nil {
					return err
				}
			}

			opts := append(a.referenceOptions(), cmdref.WithDebounce(debounce))
			reloader, err := cmdref.NewReloader(s.API, s.Product, s.Sources, opts...)
			if err != nil {
				return err
			}
			defer reloader.Close()

			runLint := func(ref *cmdref.Reference) {
				if engine == nil {
					return
				}
				result, err := engine.Evaluate(ctx, ref)
				if err != nil {
					a.logger.Error().Err(err).Msg("Lint failed")
					return
				}
				for _, v := range result.Violations {
					a.tel.Metrics.RecordLintViolation(v.Policy, string(v.Severity))
					a.logger.Warn().
						Str("policy", v.Policy).
						Str("source", v.Source).
						Str("feature", v.Feature).
						Str("severity", string(v.Severity)).
						Msg(v.Message)
				}
			}

			reloader.OnReload(func(ref *cmdref.Reference) {
				if err := a.tel.Events.PublishReferenceReloaded(ref.Len()); err != nil {
					a.logger.Debug().Err(err).Msg("Failed to publish event")
				}
				runLint(ref)
			})
			reloader.OnError(func(err error) {
				a.logger.Error().
					Err(err).
					Str("class", string(cmdref.ClassOf(err))).
					Msg("Rejected document change")
				if perr := a.tel.Events.PublishReferenceReloadFailed(err); perr != nil {
					a.logger.Debug().Err(perr).Msg("Failed to publish event")
				}
			})

			if err := a.tel.Metrics.StartMetricsServer(func(err error) {
				a.logger.Error().Err(err).Msg("Metrics server failed")
			}); err != nil {
				return err
			}

			if err := reloader.Watch(ctx); err != nil {
				return err
			}

			ref := reloader.Current()
			a.logger.Info().
				Int("features", ref.Len()).
				Str("metrics", a.tel.Config.Metrics.ListenAddress).
				Msg("Watching command reference")
			runLint(ref)

			<-ctx.Done()
			a.logger.Info().Msg("Stopped watching")
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "delay before reloading after a change")
	cmd.Flags().BoolVar(&lint, "lint", false, "run lint policies after each reload")
	cmd.Flags().StringVar(&listen, "listen", "", "metrics listen address (overrides settings)")

	return cmd
}
