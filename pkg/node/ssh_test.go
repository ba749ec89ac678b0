package node

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// testNode is a minimal SSH server that answers exec requests from a
// command table, like a node's exec-mode CLI.
type testNode struct {
	listener net.Listener
	config   *ssh.ServerConfig
	hostKey  ssh.PublicKey
	addr     string
	done     chan struct{}

	mu       sync.Mutex
	replies  map[string]string
	received []string
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	pub, signer, err := generateTestKey()
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "admin" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid credentials")
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, nil
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	n := &testNode{
		listener: listener,
		config:   config,
		hostKey:  pub,
		addr:     listener.Addr().String(),
		done:     make(chan struct{}),
		replies:  make(map[string]string),
	}
	go n.serve()
	t.Cleanup(n.close)

	return n
}

func (n *testNode) reply(command, output string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies[command] = output
}

func (n *testNode) commands() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.received...)
}

func (n *testNode) serve() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.done:
				return
			default:
				continue
			}
		}
		go n.handleConnection(conn)
	}
}

func (n *testNode) handleConnection(netConn net.Conn) {
	defer netConn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, n.config)
	if err != nil {
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go n.handleChannel(channel, requests)
	}
}

func (n *testNode) handleChannel(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		if req.Type != "exec" {
			if req.WantReply {
				req.Reply(false, nil)
			}
			continue
		}

		command := string(req.Payload[4:])
		if req.WantReply {
			req.Reply(true, nil)
		}

		n.mu.Lock()
		n.received = append(n.received, command)
		output, ok := n.replies[command]
		n.mu.Unlock()

		status := uint32(0)
		switch {
		case command == "hang":
			<-n.done
			return
		case command == "fail":
			channel.Stderr().Write([]byte("boom\n"))
			status = 1
		case ok:
			channel.Write([]byte(output + "\n"))
		}

		payload := make([]byte, 4)
		binary.BigEndian.PutUint32(payload, status)
		channel.SendRequest("exit-status", false, payload)
		return
	}
}

func (n *testNode) close() {
	select {
	case <-n.done:
	default:
		close(n.done)
		n.listener.Close()
	}
}

func (n *testNode) sshConfig(t *testing.T) *SSHConfig {
	t.Helper()

	host, portStr, err := net.SplitHostPort(n.addr)
	if err != nil {
		t.Fatalf("bad address %q: %v", n.addr, err)
	}
	port, _ := strconv.Atoi(portStr)

	config := DefaultSSHConfig(host, "admin")
	config.Port = port
	config.Password = "secret"
	config.InsecureIgnoreHostKey = true
	config.ConnectionTimeout = 5 * time.Second
	config.CommandTimeout = 5 * time.Second
	return config
}

func generateTestKey() (ssh.PublicKey, ssh.Signer, error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	signer, err := ssh.NewSignerFromKey(privKey)
	if err != nil {
		return nil, nil, err
	}
	publicKey, err := ssh.NewPublicKey(pubKey)
	if err != nil {
		return nil, nil, err
	}
	return publicKey, signer, nil
}

type recordedCommand struct {
	kind string
	err  error
}

type commandLog struct {
	mu   sync.Mutex
	seen []recordedCommand
}

func (l *commandLog) RecordDeviceCommand(kind string, err error, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, recordedCommand{kind, err})
}

func connectedClient(t *testing.T, n *testNode, opts ...SSHOption) *SSHClient {
	t.Helper()

	client, err := NewSSHClient(n.sshConfig(t), opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSSHClientConnect(t *testing.T) {
	n := newTestNode(t)
	client := connectedClient(t, n)

	if !client.IsConnected() {
		t.Error("expected client to be connected")
	}
	if client.ConnectedAt().IsZero() {
		t.Error("expected connection time to be set")
	}

	// second connect is a no-op
	if err := client.Connect(context.Background()); err != nil {
		t.Errorf("reconnect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if client.IsConnected() {
		t.Error("expected client to be disconnected")
	}
}

func TestSSHClientBadPassword(t *testing.T) {
	n := newTestNode(t)

	config := n.sshConfig(t)
	config.Password = "wrong"
	client, err := NewSSHClient(config)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	err = client.Connect(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !terr.IsAuthError {
		t.Errorf("expected auth error, got %v", terr)
	}
}

func TestSSHClientKnownHosts(t *testing.T) {
	n := newTestNode(t)
	dir := t.TempDir()

	writeKnownHosts := func(name string, key ssh.PublicKey) string {
		path := filepath.Join(dir, name)
		line := knownhosts.Line([]string{knownhosts.Normalize(n.addr)}, key)
		if err := os.WriteFile(path, []byte(line+"\n"), 0o600); err != nil {
			t.Fatalf("failed to write known_hosts: %v", err)
		}
		return path
	}

	t.Run("trusted key", func(t *testing.T) {
		config := n.sshConfig(t)
		config.InsecureIgnoreHostKey = false
		config.KnownHostsPath = writeKnownHosts("good", n.hostKey)

		client, err := NewSSHClient(config)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if err := client.Connect(context.Background()); err != nil {
			t.Fatalf("failed to connect: %v", err)
		}
		client.Close()
	})

	t.Run("changed key", func(t *testing.T) {
		other, _, err := generateTestKey()
		if err != nil {
			t.Fatal(err)
		}
		config := n.sshConfig(t)
		config.InsecureIgnoreHostKey = false
		config.KnownHostsPath = writeKnownHosts("bad", other)

		client, err := NewSSHClient(config)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if err := client.Connect(context.Background()); err == nil {
			client.Close()
			t.Fatal("expected host key mismatch to fail")
		}
	})
}

func TestSSHClientShow(t *testing.T) {
	n := newTestNode(t)
	n.reply("show running-config vrf", "vrf context red\n  description blue")
	n.reply("show bogus", "% Invalid command at '^' marker.")

	log := &commandLog{}
	client := connectedClient(t, n, WithCommandRecorder(log))
	ctx := context.Background()

	out, err := client.Show(ctx, "show running-config vrf")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if out != "vrf context red\n  description blue" {
		t.Errorf("unexpected output %q", out)
	}

	_, err = client.Show(ctx, "show bogus")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %v", err)
	}
	if cliErr.Command != "show bogus" {
		t.Errorf("expected rejected command 'show bogus', got %q", cliErr.Command)
	}

	_, err = client.Show(ctx, "fail")
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if len(log.seen) != 3 {
		t.Fatalf("expected 3 recorded commands, got %d", len(log.seen))
	}
	for _, rec := range log.seen {
		if rec.kind != KindShow {
			t.Errorf("expected kind %q, got %q", KindShow, rec.kind)
		}
	}
	if log.seen[0].err != nil || log.seen[1].err == nil {
		t.Errorf("unexpected recorded errors: %+v", log.seen)
	}
}

func TestSSHClientConfig(t *testing.T) {
	n := newTestNode(t)
	client := connectedClient(t, n)

	if err := client.Config(context.Background(), "vrf context red", "shutdown"); err != nil {
		t.Fatalf("config failed: %v", err)
	}

	got := n.commands()
	want := "configure terminal ; vrf context red ; shutdown ; end"
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// nothing to send
	if err := client.Config(context.Background()); err != nil {
		t.Errorf("empty config failed: %v", err)
	}
	if len(n.commands()) != 1 {
		t.Error("expected empty config to send nothing")
	}
}

func TestSSHClientCommandTimeout(t *testing.T) {
	n := newTestNode(t)
	client := connectedClient(t, n)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Show(ctx, "hang")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSSHClientNotConnected(t *testing.T) {
	n := newTestNode(t)
	client, err := NewSSHClient(n.sshConfig(t))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Show(context.Background(), "show version"); err == nil {
		t.Error("expected error when not connected")
	}
}
