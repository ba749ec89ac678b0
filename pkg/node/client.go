package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client runs commands on one network node.
type Client interface {
	// Show runs an exec-mode command and returns its output.
	Show(ctx context.Context, command string) (string, error)

	// Config applies configuration commands in order.
	Config(ctx context.Context, commands ...string) error
}

// CommandRecorder observes device exchanges. telemetry.Metrics implements
// it.
type CommandRecorder interface {
	RecordDeviceCommand(kind string, err error, d time.Duration)
}

// Command kinds passed to CommandRecorder.
const (
	KindShow   = "show"
	KindConfig = "config"
)

// ErrUnsupported is returned when the resolved record lacks the attribute
// an operation needs on this API/product.
var ErrUnsupported = errors.New("operation not supported on this platform")

// cliErrorMarkers start the lines a device prints for rejected input.
var cliErrorMarkers = []string{
	"% Invalid",
	"% Incomplete",
	"% Ambiguous",
	"ERROR:",
}

// CLIError is a command the device rejected.
type CLIError struct {
	// Command is the rejected command.
	Command string

	// Message is the device's error line.
	Message string

	// Output is the full command output.
	Output string
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("command %q rejected: %s", e.Command, e.Message)
}

// CheckOutput returns a *CLIError when output contains a CLI error marker.
func CheckOutput(command, output string) error {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, marker := range cliErrorMarkers {
			if strings.HasPrefix(trimmed, marker) {
				return &CLIError{Command: command, Message: trimmed, Output: output}
			}
		}
	}
	return nil
}

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (connect, show, config).
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying may succeed.
func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}
