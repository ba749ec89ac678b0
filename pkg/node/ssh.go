package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SSHClient is a Client that runs each command in its own SSH exec session.
type SSHClient struct {
	config   *SSHConfig
	logger   zerolog.Logger
	recorder CommandRecorder

	mu          sync.RWMutex
	client      *ssh.Client
	connectedAt time.Time
}

// SSHOption configures an SSHClient.
type SSHOption func(*SSHClient)

// WithSSHLogger sets the client logger.
func WithSSHLogger(logger zerolog.Logger) SSHOption {
	return func(c *SSHClient) { c.logger = logger }
}

// WithCommandRecorder reports every command to r.
func WithCommandRecorder(r CommandRecorder) SSHOption {
	return func(c *SSHClient) { c.recorder = r }
}

// NewSSHClient creates an unconnected SSH client.
func NewSSHClient(config *SSHConfig, opts ...SSHOption) (*SSHClient, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &SSHClient{
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "node").Str("host", config.Host).Logger()

	return c, nil
}

// Connect dials the node. Calling it on a connected client is a no-op.
func (c *SSHClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	clientConfig, err := c.config.clientConfig()
	if err != nil {
		return &TransportError{Op: "connect", Err: err, IsAuthError: true}
	}

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", c.config.Address(), clientConfig)
		done <- dialResult{client, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			// reap a dial that completes after cancellation
			if r := <-done; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return &TransportError{Op: "connect", Err: ctx.Err(), IsTemporary: true}
	case r := <-done:
		if r.err != nil {
			return &TransportError{
				Op:          "connect",
				Err:         r.err,
				IsTemporary: true,
				IsAuthError: strings.Contains(r.err.Error(), "unable to authenticate"),
			}
		}
		c.client = r.client
		c.connectedAt = time.Now()
	}

	c.logger.Debug().Str("address", c.config.Address()).Msg("SSH connection established")
	return nil
}

// Close closes the SSH connection.
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		return &TransportError{Op: "disconnect", Err: err}
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Close was not called.
func (c *SSHClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// ConnectedAt returns when the current connection was established.
func (c *SSHClient) ConnectedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectedAt
}

// Show runs command and returns its output.
func (c *SSHClient) Show(ctx context.Context, command string) (string, error) {
	start := time.Now()
	out, err := c.run(ctx, KindShow, command)
	if err == nil {
		err = CheckOutput(command, out)
	}
	c.record(KindShow, err, time.Since(start))
	return out, err
}

// Config enters configuration mode, applies commands and leaves it again,
// all in one exec session.
func (c *SSHClient) Config(ctx context.Context, commands ...string) error {
	if len(commands) == 0 {
		return nil
	}

	start := time.Now()
	line := "configure terminal ; " + strings.Join(commands, " ; ") + " ; end"
	out, err := c.run(ctx, KindConfig, line)
	if err == nil {
		err = CheckOutput(strings.Join(commands, "; "), out)
	}
	c.record(KindConfig, err, time.Since(start))
	return err
}

func (c *SSHClient) record(kind string, err error, d time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordDeviceCommand(kind, err, d)
	}
}

func (c *SSHClient) run(ctx context.Context, op, command string) (string, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return "", &TransportError{Op: op, Err: errors.New("not connected")}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CommandTimeout)
		defer cancel()
	}

	session, err := client.NewSession()
	if err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("failed to create session: %w", err), IsTemporary: true}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	c.logger.Debug().Str("command", command).Msg("Running command")

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	var runErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", &TransportError{Op: op, Err: ctx.Err(), IsTemporary: true}
	case runErr = <-done:
	}

	out := strings.TrimRight(stdout.String(), "\r\n")
	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = strings.TrimSpace(out)
			}
			return out, &TransportError{
				Op:  op,
				Err: fmt.Errorf("command exited with code %d: %s", exitErr.ExitStatus(), msg),
			}
		}
		return out, &TransportError{Op: op, Err: runErr, IsTemporary: true}
	}

	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		out = strings.TrimRight(out+"\n"+errOut, "\n")
	}
	return out, nil
}
