package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/nodeutils/pkg/cmdref"
	"github.com/openfroyo/nodeutils/pkg/node"
)

// ErrInvalidName is returned for an empty or over-long object name.
var ErrInvalidName = errors.New("invalid name")

// Device binds a node client to the command reference resolved for it.
type Device struct {
	client node.Client
	ref    *cmdref.Reference
	logger zerolog.Logger
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithLogger sets the device logger.
func WithLogger(logger zerolog.Logger) DeviceOption {
	return func(d *Device) { d.logger = logger }
}

// NewDevice returns a Device driving client with records from ref.
func NewDevice(client node.Client, ref *cmdref.Reference, opts ...DeviceOption) *Device {
	d := &Device{
		client: client,
		ref:    ref,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With().
		Str("component", "features").
		Str("api", ref.API()).
		Str("product", ref.Product()).
		Logger()
	return d
}

// Reference returns the command reference the device resolves against.
func (d *Device) Reference() *cmdref.Reference { return d.ref }

func (d *Device) lookup(namespace, feature string) (*cmdref.CmdRef, error) {
	return d.ref.Lookup(namespace, feature)
}

func (d *Device) get(ctx context.Context, namespace, feature string, args ...string) ([]string, error) {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return nil, err
	}
	return node.Get(ctx, d.client, rec, args...)
}

// getValue reads a single value. Platforms without a config_get for the
// feature report it as absent.
func (d *Device) getValue(ctx context.Context, namespace, feature string, args ...string) (string, bool, error) {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return "", false, err
	}
	if _, ok := rec.ConfigGet(); !ok {
		return "", false, nil
	}
	return node.GetValue(ctx, d.client, rec, args...)
}

func (d *Device) set(ctx context.Context, namespace, feature string, args ...string) error {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return err
	}
	d.logger.Debug().Str("feature", feature).Strs("args", args).Msg("Applying configuration")
	return node.Set(ctx, d.client, rec, args...)
}

// supports reports whether feature can be configured on this platform.
func (d *Device) supports(namespace, feature string) bool {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return false
	}
	_, ok := rec.ConfigSet()
	return ok
}

func (d *Device) defaultString(namespace, feature string) (string, bool) {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return "", false
	}
	v, ok := rec.DefaultValue()
	if !ok {
		return "", false
	}
	return v.Str(), true
}

func (d *Device) defaultBool(namespace, feature string) (bool, bool) {
	rec, err := d.lookup(namespace, feature)
	if err != nil {
		return false, false
	}
	v, ok := rec.DefaultValue()
	if !ok || v.Kind() != cmdref.KindBool {
		return false, false
	}
	return v.Bool(), true
}

func checkName(kind, name string, max int) error {
	if name == "" {
		return fmt.Errorf("%s name: %w: empty", kind, ErrInvalidName)
	}
	if len(name) > max {
		return fmt.Errorf("%s name %q: %w: longer than %d characters", kind, name, ErrInvalidName, max)
	}
	return nil
}

// state returns the config_set prefix that negates a command when enable is
// false.
func state(enable bool) string {
	if enable {
		return ""
	}
	return "no"
}
