package node

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig holds SSH connection settings for a node.
type SSHConfig struct {
	// Host is the node hostname or IP address
	Host string

	// Port is the SSH port (default: 22)
	Port int

	// User is the login user
	User string

	// Password enables password and keyboard-interactive authentication
	Password string

	// PrivateKeyPath enables public key authentication
	PrivateKeyPath string

	// PrivateKeyPassphrase is the passphrase for encrypted private keys
	PrivateKeyPassphrase string

	// KnownHostsPath is the known_hosts file used to verify the host key
	KnownHostsPath string

	// InsecureIgnoreHostKey skips host key verification. Lab use only.
	InsecureIgnoreHostKey bool

	// ConnectionTimeout bounds dialing and authentication
	ConnectionTimeout time.Duration

	// CommandTimeout bounds each command when ctx has no deadline
	CommandTimeout time.Duration
}

// DefaultSSHConfig returns an SSHConfig with defaults for host and user.
func DefaultSSHConfig(host, user string) *SSHConfig {
	return &SSHConfig{
		Host:              host,
		Port:              22,
		User:              user,
		ConnectionTimeout: 30 * time.Second,
		CommandTimeout:    2 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c *SSHConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Password == "" && c.PrivateKeyPath == "" {
		return fmt.Errorf("password or private key is required")
	}
	if c.PrivateKeyPath != "" {
		if _, err := os.Stat(c.PrivateKeyPath); err != nil {
			return fmt.Errorf("private key file not found: %s", c.PrivateKeyPath)
		}
	}
	if c.KnownHostsPath == "" && !c.InsecureIgnoreHostKey {
		return fmt.Errorf("known_hosts path is required unless host key checking is disabled")
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("connection timeout must be positive")
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive")
	}
	return nil
}

// clientConfig builds the ssh.ClientConfig.
func (c *SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if c.PrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		var signer ssh.Signer
		if c.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(c.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if c.Password != "" {
		password := c.Password
		auth = append(auth,
			ssh.Password(password),
			// NX-OS answers the Password: prompt through keyboard-interactive
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.InsecureIgnoreHostKey {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		var err error
		hostKeyCallback, err = knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.ConnectionTimeout,
	}, nil
}

// Address returns the host:port dial address.
func (c *SSHConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
