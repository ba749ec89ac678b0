// Package telemetry provides observability instrumentation for nodeutils.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry),
// metrics (Prometheus) and event publishing behind a single Telemetry value.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ref, err := cmdref.New(api, product, paths,
//	    cmdref.WithLogger(tel.Logger.Zerolog()),
//	    cmdref.WithRecorder(tel.Metrics))
//
// # Metrics
//
// All metrics live in a private registry under the configured namespace:
//
//	nodeutils_reference_loads_total{status}
//	nodeutils_reference_load_duration_seconds
//	nodeutils_reference_features
//	nodeutils_reference_reloads_total{status}
//	nodeutils_lookups_total{result}
//	nodeutils_resolve_duration_seconds
//	nodeutils_lint_violations_total{policy,severity}
//	nodeutils_device_commands_total{kind,status}
//	nodeutils_device_command_duration_seconds{kind}
//	nodeutils_snapshots_saved_total
//
// A disabled MetricsConfig yields a Metrics whose Record methods are no-ops.
//
// # Events
//
// EventPublisher delivers Event values to subscribers. Delivery is
// synchronous unless EventsConfig.EnableAsync is set.
package telemetry
