package node

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func TestDefaultSSHConfig(t *testing.T) {
	config := DefaultSSHConfig("n9k-1", "admin")

	if config.Host != "n9k-1" {
		t.Errorf("expected host 'n9k-1', got '%s'", config.Host)
	}
	if config.Port != 22 {
		t.Errorf("expected port 22, got %d", config.Port)
	}
	if config.ConnectionTimeout != 30*time.Second {
		t.Errorf("expected connection timeout 30s, got %v", config.ConnectionTimeout)
	}
	if config.CommandTimeout != 2*time.Minute {
		t.Errorf("expected command timeout 2m, got %v", config.CommandTimeout)
	}
	if got := config.Address(); got != "n9k-1:22" {
		t.Errorf("expected address 'n9k-1:22', got '%s'", got)
	}
}

func TestSSHConfigAddressIPv6(t *testing.T) {
	config := DefaultSSHConfig("2001:db8::1", "admin")
	if got := config.Address(); got != "[2001:db8::1]:22" {
		t.Errorf("expected bracketed address, got '%s'", got)
	}
}

func TestSSHConfigValidation(t *testing.T) {
	tests := []struct {
		name       string
		modifyFunc func(*SSHConfig)
		errorMsg   string
	}{
		{
			name:       "valid config",
			modifyFunc: func(c *SSHConfig) {},
		},
		{
			name:       "missing host",
			modifyFunc: func(c *SSHConfig) { c.Host = "" },
			errorMsg:   "host is required",
		},
		{
			name:       "invalid port",
			modifyFunc: func(c *SSHConfig) { c.Port = 70000 },
			errorMsg:   "invalid port",
		},
		{
			name:       "missing user",
			modifyFunc: func(c *SSHConfig) { c.User = "" },
			errorMsg:   "user is required",
		},
		{
			name:       "no credentials",
			modifyFunc: func(c *SSHConfig) { c.Password = "" },
			errorMsg:   "password or private key is required",
		},
		{
			name:       "missing key file",
			modifyFunc: func(c *SSHConfig) { c.PrivateKeyPath = "/nonexistent/key" },
			errorMsg:   "private key file not found",
		},
		{
			name: "host key checking without known_hosts",
			modifyFunc: func(c *SSHConfig) {
				c.InsecureIgnoreHostKey = false
				c.KnownHostsPath = ""
			},
			errorMsg: "known_hosts path is required",
		},
		{
			name:       "zero command timeout",
			modifyFunc: func(c *SSHConfig) { c.CommandTimeout = 0 },
			errorMsg:   "command timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSSHConfig("n9k-1", "admin")
			config.Password = "secret"
			config.InsecureIgnoreHostKey = true
			tt.modifyFunc(config)

			err := config.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing '%s', got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestSSHConfigKeyAuth(t *testing.T) {
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	pemBlock, err := ssh.MarshalPrivateKey(privKey, "")
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(pemBlock), 0o600); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	config := DefaultSSHConfig("n9k-1", "admin")
	config.PrivateKeyPath = keyPath
	config.InsecureIgnoreHostKey = true

	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	clientConfig, err := config.clientConfig()
	if err != nil {
		t.Fatalf("failed to build client config: %v", err)
	}
	if len(clientConfig.Auth) != 1 {
		t.Errorf("expected 1 auth method, got %d", len(clientConfig.Auth))
	}

	config.Password = "secret"
	clientConfig, err = config.clientConfig()
	if err != nil {
		t.Fatalf("failed to build client config: %v", err)
	}
	// key, password and keyboard-interactive
	if len(clientConfig.Auth) != 3 {
		t.Errorf("expected 3 auth methods, got %d", len(clientConfig.Auth))
	}
}

func TestSSHConfigBadKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(keyPath, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	config := DefaultSSHConfig("n9k-1", "admin")
	config.PrivateKeyPath = keyPath
	config.InsecureIgnoreHostKey = true

	if _, err := config.clientConfig(); err == nil || !strings.Contains(err.Error(), "failed to parse private key") {
		t.Errorf("expected parse error, got %v", err)
	}
}
