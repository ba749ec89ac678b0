package config

import (
	"time"

	"github.com/openfroyo/nodeutils/pkg/telemetry"
)

// Settings is the nodeutils tool configuration, read from nodeutils.yaml (or
// nodeutils.cue) and overridden by environment variables and flags.
type Settings struct {
	// API is the API flavor references are resolved for.
	API string `yaml:"api" json:"api" validate:"max=64"`

	// Product is the product identifier matched against pattern selectors.
	Product string `yaml:"product" json:"product" validate:"max=128"`

	// Sources lists command reference files, directories or globs. Empty
	// means the embedded default reference.
	Sources []string `yaml:"sources" json:"sources" validate:"dive,required"`

	// APIs registers API flavors beyond the built-in ones.
	APIs []string `yaml:"apis" json:"apis" validate:"dive,required,max=64"`

	// Store configures the snapshot database.
	Store StoreSettings `yaml:"store" json:"store"`

	// Lint configures reference lint policies.
	Lint LintSettings `yaml:"lint" json:"lint"`

	// Device configures the SSH connection used by device commands.
	Device DeviceSettings `yaml:"device" json:"device"`

	// Telemetry configures logging, tracing, metrics and events.
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// StoreSettings configures the snapshot store.
type StoreSettings struct {
	// Path is the SQLite database file, or ":memory:".
	Path string `yaml:"path" json:"path" validate:"required"`
}

// LintSettings configures lint policy evaluation.
type LintSettings struct {
	// Policies lists extra .rego files or directories.
	Policies []string `yaml:"policies" json:"policies" validate:"dive,required"`

	// Enable turns on built-in policies that are off by default.
	Enable []string `yaml:"enable" json:"enable"`

	// Disable turns off built-in policies.
	Disable []string `yaml:"disable" json:"disable"`

	// FailOn is the lowest severity that fails a lint run.
	FailOn string `yaml:"fail_on" json:"fail_on" validate:"required,oneof=error warning info"`
}

// DeviceSettings configures the device SSH transport.
type DeviceSettings struct {
	Host string `yaml:"host" json:"host" validate:"omitempty,hostname_rfc1123|ip"`
	Port int    `yaml:"port" json:"port" validate:"min=0,max=65535"`
	User string `yaml:"user" json:"user"`

	// Password is never rendered back out.
	Password string `yaml:"password" json:"-"`

	KeyFile               string        `yaml:"key_file" json:"key_file" validate:"omitempty,file"`
	KnownHostsFile        string        `yaml:"known_hosts_file" json:"known_hosts_file"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key" json:"insecure_ignore_host_key"`
	Timeout               time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		API:     "cli",
		Product: "",
		Store: StoreSettings{
			Path: "nodeutils.db",
		},
		Lint: LintSettings{
			FailOn: "error",
		},
		Device: DeviceSettings{
			Port:    22,
			Timeout: 30 * time.Second,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}
