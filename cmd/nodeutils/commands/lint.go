package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/nodeutils/pkg/policy"
	"github.com/openfroyo/nodeutils/pkg/telemetry"
)

func newLintCommand() *cobra.Command {
	var (
		policies []string
		enable   []string
		disable  []string
		failOn   string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check reference documents against lint policies",
		Long: `Evaluate built-in and custom rego policies over the loaded documents.

Built-in policies:
  - config-get-token: config_get_token without config_get (error)
  - default-value: config_get without a default_value (info)
  - feature-order: features out of alphabetical order (warning, off by default)

The command exits with status 3 when a violation reaches the --fail-on
severity.`,
		Example: `  # Lint the embedded reference
  nodeutils lint

  # Add custom policies and enable ordering checks
  nodeutils lint --source ./reference --policy ./policies --enable feature-order

  # Fail on warnings too
  nodeutils lint --fail-on warning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if failOn == "" {
				failOn = a.settings.Lint.FailOn
			}
			threshold, err := policy.ParseSeverity(failOn)
			if err != nil {
				return err
			}

			ref, err := a.loadReference(ctx)
			if err != nil {
				return err
			}

			engine, err := a.lintEngine(ctx, policies, enable, disable)
			if err != nil {
				return err
			}

			spanCtx, span := a.tel.Tracer.StartLintSpan(ctx, len(engine.ListPolicies()))
			result, err := engine.Evaluate(spanCtx, ref)
			telemetry.EndSpan(span, err)
			if err != nil {
				return err
			}

			for _, v := range result.Violations {
				a.tel.Metrics.RecordLintViolation(v.Policy, string(v.Severity))
				if err := a.tel.Events.PublishLintViolation(v.Policy, v.Feature, string(v.Severity), v.Message); err != nil {
					a.logger.Debug().Err(err).Msg("Failed to publish event")
				}
			}
			for _, w := range result.Warnings {
				a.logger.Warn().Msg(w)
			}

			if jsonOutput {
				if err := render(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				printViolations(cmd, result)
			}

			if result.Failed(threshold) {
				return &exitError{code: 3, err: fmt.Errorf("lint failed: %d violations at or above %s", countAtLeast(result, threshold), threshold)}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&policies, "policy", nil, "extra .rego/.json policy file or directory (repeatable)")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "enable policies by name")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "disable policies by name")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "lowest severity that fails the run (error, warning, info)")

	return cmd
}

// lintEngine builds a policy engine from the lint settings plus the given
// extra policy paths and enable/disable lists.
func (a *app) lintEngine(ctx context.Context, paths, enable, disable []string) (*policy.Engine, error) {
	lint := a.settings.Lint

	engine, err := policy.NewEngine(a.logger)
	if err != nil {
		return nil, err
	}
	if err := engine.LoadPolicies(ctx, append(append([]string(nil), lint.Policies...), paths...)); err != nil {
		return nil, err
	}
	for _, name := range append(append([]string(nil), lint.Enable...), enable...) {
		if err := engine.EnablePolicy(name); err != nil {
			return nil, err
		}
	}
	for _, name := range append(append([]string(nil), lint.Disable...), disable...) {
		if err := engine.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

func printViolations(cmd *cobra.Command, result *policy.Result) {
	out := cmd.OutOrStdout()
	if len(result.Violations) == 0 {
		fmt.Fprintf(out, "No violations (%d policies)\n", len(result.EvaluatedPolicies))
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tPOLICY\tSOURCE\tFEATURE\tMESSAGE")
	for _, v := range result.Violations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Severity, v.Policy, v.Source, v.Feature, v.Message)
	}
	w.Flush()

	counts := result.CountBySeverity()
	fmt.Fprintf(out, "\n%d errors, %d warnings, %d info\n",
		counts[policy.SeverityError], counts[policy.SeverityWarning], counts[policy.SeverityInfo])
}

func countAtLeast(result *policy.Result, threshold policy.Severity) int {
	n := 0
	for _, v := range result.Violations {
		if v.Severity.Rank() >= threshold.Rank() {
			n++
		}
	}
	return n
}
