// Package nodetest provides an in-memory node.Client for tests.
package nodetest

import (
	"context"
	"sync"
)

// Client is a scripted node.Client. Show answers from Outputs; Config
// records the commands it receives. It is safe for concurrent use.
type Client struct {
	mu sync.Mutex

	outputs   map[string]string
	showErrs  map[string]error
	configErr error

	// OnConfig, when set, runs after commands are recorded and may update
	// outputs to mimic the node applying them.
	OnConfig func(c *Client, commands []string) error

	shows   []string
	configs [][]string
}

// New returns an empty Client.
func New() *Client {
	return &Client{
		outputs:  make(map[string]string),
		showErrs: make(map[string]error),
	}
}

// SetOutput scripts the output of a show command.
func (c *Client) SetOutput(command, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[command] = output
}

// Output returns the scripted output for command.
func (c *Client) Output(command string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputs[command]
}

// FailShow makes Show return err for command.
func (c *Client) FailShow(command string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showErrs[command] = err
}

// FailConfig makes every Config call return err.
func (c *Client) FailConfig(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configErr = err
}

// Show returns the scripted output. Unscripted commands produce no output.
func (c *Client) Show(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.shows = append(c.shows, command)
	if err := c.showErrs[command]; err != nil {
		return "", err
	}
	return c.outputs[command], nil
}

// Config records commands.
func (c *Client) Config(ctx context.Context, commands ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.configErr != nil {
		err := c.configErr
		c.mu.Unlock()
		return err
	}
	c.configs = append(c.configs, append([]string(nil), commands...))
	hook := c.OnConfig
	c.mu.Unlock()

	if hook != nil {
		return hook(c, commands)
	}
	return nil
}

// Shows returns the show commands received so far.
func (c *Client) Shows() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.shows...)
}

// Configs returns each Config call's commands.
func (c *Client) Configs() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.configs))
	for i, cmds := range c.configs {
		out[i] = append([]string(nil), cmds...)
	}
	return out
}

// ConfigLines returns every configuration command received, flattened.
func (c *Client) ConfigLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, cmds := range c.configs {
		out = append(out, cmds...)
	}
	return out
}

// Reset forgets recorded commands. Scripted outputs are kept.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shows = nil
	c.configs = nil
}
