package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override settings file values.
const (
	EnvAPI      = "NODEUTILS_API"
	EnvProduct  = "NODEUTILS_PRODUCT"
	EnvSources  = "NODEUTILS_SOURCES"
	EnvStore    = "NODEUTILS_STORE"
	EnvLogLevel = "LOG_LEVEL"
)

// DefaultSettingsFile is looked up in the working directory when no
// settings file is given.
const DefaultSettingsFile = "nodeutils.yaml"

// Loader reads, overrides and validates tool settings.
type Loader struct {
	registry  *SchemaRegistry
	validator *validator.Validate
	getenv    func(string) string
}

// NewLoader creates a settings loader.
func NewLoader() *Loader {
	return &Loader{
		registry:  NewSchemaRegistry(),
		validator: validator.New(),
		getenv:    os.Getenv,
	}
}

// Registry returns the loader's schema registry.
func (l *Loader) Registry() *SchemaRegistry {
	return l.registry
}

// Load reads the settings file at path on top of DefaultSettings, applies
// environment overrides and validates the result. An empty path tries
// DefaultSettingsFile and falls back to defaults when it does not exist.
func (l *Loader) Load(ctx context.Context, path string) (*Settings, error) {
	s := DefaultSettings()

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := l.decode(path, data, s); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	l.ApplyEnv(s)

	if err := l.Validate(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes settings from data on top of DefaultSettings without
// applying environment overrides. The format follows the file extension
// of name; anything but .cue is read as YAML.
func (l *Loader) Parse(ctx context.Context, name string, data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := l.decode(name, data, s); err != nil {
		return nil, err
	}
	if err := l.Validate(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (l *Loader) decode(name string, data []byte, s *Settings) error {
	if strings.EqualFold(filepath.Ext(name), ".cue") {
		return decodeCUE(name, data, s)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse settings %s: %w", name, err)
	}
	return nil
}

func decodeCUE(name string, data []byte, s *Settings) error {
	val := cuecontext.New().CompileBytes(data, cue.Filename(name))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile settings %s: %s", name, formatCUEError(err))
	}
	if err := val.Decode(s); err != nil {
		return fmt.Errorf("failed to decode settings %s: %s", name, formatCUEError(err))
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (l *Loader) ApplyEnv(s *Settings) {
	if v := l.getenv(EnvAPI); v != "" {
		s.API = v
	}
	if v := l.getenv(EnvProduct); v != "" {
		s.Product = v
	}
	if v := l.getenv(EnvSources); v != "" {
		s.Sources = filepath.SplitList(v)
	}
	if v := l.getenv(EnvStore); v != "" {
		s.Store.Path = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		s.Telemetry.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks settings with struct tags, the CUE settings schema and
// the telemetry configuration rules.
func (l *Loader) Validate(ctx context.Context, s *Settings) error {
	if err := l.validator.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := l.registry.ValidateSettings(ctx, s); err != nil {
		return fmt.Errorf("invalid settings: %s", formatCUEError(err))
	}
	if err := s.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry settings: %w", err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into one line per error.
func formatCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) <= 1 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}
