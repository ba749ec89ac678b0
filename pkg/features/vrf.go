package features

import (
	"context"
	"fmt"
	"strings"
)

const vrfNamespace = "vrf"

// MaxVrfNameLen is the longest VRF name a node accepts.
const MaxVrfNameLen = 32

// Vrf is a VRF context on a node.
type Vrf struct {
	device *Device
	name   string
}

// Vrfs returns the VRFs configured on the node keyed by name.
func (d *Device) Vrfs(ctx context.Context) (map[string]*Vrf, error) {
	names, err := d.get(ctx, vrfNamespace, "vrf_all")
	if err != nil {
		return nil, err
	}

	vrfs := make(map[string]*Vrf, len(names))
	for _, name := range names {
		vrfs[name] = &Vrf{device: d, name: name}
	}
	return vrfs, nil
}

// NewVrf returns the VRF called name, configuring it first when create is
// true.
func (d *Device) NewVrf(ctx context.Context, name string, create bool) (*Vrf, error) {
	name = strings.TrimSpace(name)
	if err := checkName("vrf", name, MaxVrfNameLen); err != nil {
		return nil, err
	}

	v := &Vrf{device: d, name: name}
	if create {
		if err := d.set(ctx, vrfNamespace, "vrf_create", name); err != nil {
			return nil, fmt.Errorf("create vrf %s: %w", name, err)
		}
	}
	return v, nil
}

// Name returns the VRF name.
func (v *Vrf) Name() string { return v.name }

// Destroy removes the VRF from the node.
func (v *Vrf) Destroy(ctx context.Context) error {
	if err := v.device.set(ctx, vrfNamespace, "vrf_destroy", v.name); err != nil {
		return fmt.Errorf("destroy vrf %s: %w", v.name, err)
	}
	return nil
}

// Description returns the configured description, or the default when none
// is set.
func (v *Vrf) Description(ctx context.Context) (string, error) {
	desc, ok, err := v.device.getValue(ctx, vrfNamespace, "vrf_description", v.name)
	if err != nil {
		return "", err
	}
	if !ok {
		return v.DefaultDescription(), nil
	}
	return desc, nil
}

// SetDescription sets the description. An empty desc removes it.
func (v *Vrf) SetDescription(ctx context.Context, desc string) error {
	desc = strings.TrimSpace(desc)
	return v.device.set(ctx, vrfNamespace, "vrf_description", v.name, state(desc != ""), desc)
}

// DefaultDescription returns the description of an unconfigured VRF.
func (v *Vrf) DefaultDescription() string {
	desc, _ := v.device.defaultString(vrfNamespace, "vrf_description")
	return desc
}

// Shutdown reports whether the VRF is shut down. Platforms without the
// setting report false.
func (v *Vrf) Shutdown(ctx context.Context) (bool, error) {
	_, ok, err := v.device.getValue(ctx, vrfNamespace, "vrf_shutdown", v.name)
	return ok, err
}

// SetShutdown shuts the VRF down or brings it up.
func (v *Vrf) SetShutdown(ctx context.Context, shutdown bool) error {
	return v.device.set(ctx, vrfNamespace, "vrf_shutdown", v.name, state(shutdown))
}

// DefaultShutdown returns the shutdown state of a new VRF. ok is false on
// platforms without the setting.
func (v *Vrf) DefaultShutdown() (shutdown, ok bool) {
	return v.device.defaultBool(vrfNamespace, "vrf_shutdown")
}

// SupportsShutdown reports whether the platform can shut a VRF down.
func (v *Vrf) SupportsShutdown() bool {
	return v.device.supports(vrfNamespace, "vrf_shutdown")
}
