package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
	"github.com/openfroyo/nodeutils/pkg/config"
	"github.com/openfroyo/nodeutils/pkg/features"
	"github.com/openfroyo/nodeutils/pkg/telemetry"
)

// app is the per-invocation state shared by subcommands.
type app struct {
	settings *config.Settings
	tel      *telemetry.Telemetry
	logger   zerolog.Logger
}

// newApp loads settings, applies global flags and overrides, and starts
// telemetry.
func newApp(ctx context.Context, overrides ...func(*config.Settings)) (*app, error) {
	loader := config.NewLoader()
	settings, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}

	if apiFlag != "" {
		settings.API = apiFlag
	}
	if product != "" {
		settings.Product = product
	}
	if len(sources) > 0 {
		settings.Sources = sources
	}
	if verbose {
		settings.Telemetry.Logging.Level = "debug"
	}
	for _, override := range overrides {
		override(settings)
	}
	if err := loader.Validate(ctx, settings); err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&settings.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	log.Logger = tel.Logger.Zerolog()
	logger := tel.Logger.
		NewComponentLogger("cli").
		WithContextKeys(settings.API, settings.Product).
		Zerolog()

	tel.Events.Subscribe(func(e telemetry.Event) {
		logger.Debug().
			Str("event", e.Type).
			Str("level", e.Level).
			Interface("data", e.Data).
			Msg(e.Message)
	}, nil)

	return &app{settings: settings, tel: tel, logger: logger}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

func (a *app) referenceOptions() []cmdref.Option {
	return []cmdref.Option{
		cmdref.WithLogger(a.logger),
		cmdref.WithRecorder(a.tel.Metrics),
		cmdref.WithAPIs(a.settings.APIs...),
	}
}

// loadReference builds the command reference from the configured sources,
// or from the embedded documents when none are configured.
func (a *app) loadReference(ctx context.Context) (*cmdref.Reference, error) {
	s := a.settings
	_, span := a.tel.Tracer.StartLoadSpan(ctx, s.API, s.Product, len(s.Sources))

	var (
		ref *cmdref.Reference
		err error
	)
	if len(s.Sources) == 0 {
		ref, err = features.DefaultReference(s.API, s.Product, a.referenceOptions()...)
	} else {
		ref, err = cmdref.New(s.API, s.Product, s.Sources, a.referenceOptions()...)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	if err := a.tel.Events.PublishReferenceLoaded(s.API, s.Product, ref.Len()); err != nil {
		a.logger.Debug().Err(err).Msg("Failed to publish event")
	}
	return ref, nil
}

// render writes v as indented JSON with --json, YAML otherwise.
func render(w io.Writer, v any) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
