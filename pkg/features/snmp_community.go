package features

import (
	"context"
	"fmt"
	"strings"
)

const snmpNamespace = "snmp"

// Name limits for SNMP communities.
const (
	MaxCommunityNameLen = 128
	MaxGroupNameLen     = 128
)

// SnmpCommunity is an SNMP community string on a node.
type SnmpCommunity struct {
	device *Device
	name   string
}

// Communities returns the SNMP communities configured on the node keyed by
// name.
func (d *Device) Communities(ctx context.Context) (map[string]*SnmpCommunity, error) {
	names, err := d.get(ctx, snmpNamespace, "snmp_community_all")
	if err != nil {
		return nil, err
	}

	communities := make(map[string]*SnmpCommunity, len(names))
	for _, name := range names {
		communities[name] = &SnmpCommunity{device: d, name: name}
	}
	return communities, nil
}

// NewSnmpCommunity returns the community called name. When create is true it
// is configured first, in group or the default group when group is empty.
func (d *Device) NewSnmpCommunity(ctx context.Context, name, group string, create bool) (*SnmpCommunity, error) {
	if err := checkName("snmp community", name, MaxCommunityNameLen); err != nil {
		return nil, err
	}
	if len(group) > MaxGroupNameLen {
		return nil, fmt.Errorf("snmp group %q: %w: longer than %d characters", group, ErrInvalidName, MaxGroupNameLen)
	}

	c := &SnmpCommunity{device: d, name: name}
	if create {
		if group == "" {
			group = c.DefaultGroup()
		}
		if err := d.set(ctx, snmpNamespace, "snmp_community", name, group); err != nil {
			return nil, fmt.Errorf("create snmp community %s: %w", name, err)
		}
	}
	return c, nil
}

// Name returns the community string.
func (c *SnmpCommunity) Name() string { return c.name }

// Destroy removes the community from the node.
func (c *SnmpCommunity) Destroy(ctx context.Context) error {
	if err := c.device.set(ctx, snmpNamespace, "snmp_community_destroy", c.name); err != nil {
		return fmt.Errorf("destroy snmp community %s: %w", c.name, err)
	}
	return nil
}

// Group returns the group the community belongs to. Platforms without
// community groups report "".
func (c *SnmpCommunity) Group(ctx context.Context) (string, error) {
	group, _, err := c.device.getValue(ctx, snmpNamespace, "snmp_community_group", c.name)
	return group, err
}

// SetGroup moves the community to group.
func (c *SnmpCommunity) SetGroup(ctx context.Context, group string) error {
	if group == "" || len(group) > MaxGroupNameLen {
		return fmt.Errorf("snmp group %q: %w", group, ErrInvalidName)
	}
	return c.device.set(ctx, snmpNamespace, "snmp_community_group", c.name, group)
}

// DefaultGroup returns the group of a community created without one.
func (c *SnmpCommunity) DefaultGroup() string {
	group, _ := c.device.defaultString(snmpNamespace, "snmp_community_group")
	return group
}

// ACL returns the access list bound to the community, or the default when
// none is bound.
func (c *SnmpCommunity) ACL(ctx context.Context) (string, error) {
	acl, ok, err := c.device.getValue(ctx, snmpNamespace, "snmp_community_acl", c.name)
	if err != nil {
		return "", err
	}
	if !ok {
		return c.DefaultACL(), nil
	}
	return acl, nil
}

// SetACL binds acl to the community. An empty acl unbinds the current one.
func (c *SnmpCommunity) SetACL(ctx context.Context, acl string) error {
	acl = strings.TrimSpace(acl)
	if acl != "" {
		return c.device.set(ctx, snmpNamespace, "snmp_community_acl", "", c.name, acl)
	}

	current, err := c.ACL(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return nil
	}
	return c.device.set(ctx, snmpNamespace, "snmp_community_acl", "no", c.name, current)
}

// DefaultACL returns the access list of an unconfigured community.
func (c *SnmpCommunity) DefaultACL() string {
	acl, _ := c.device.defaultString(snmpNamespace, "snmp_community_acl")
	return acl
}
