// Package sshtest runs an in-process SSH server for tests. Exec requests are
// executed locally through /bin/sh, so tests exercise real command lines,
// stream separation, and exit codes without a remote machine.
package sshtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server is a local SSH server accepting any client.
type Server struct {
	// Addr is the listen address (127.0.0.1 with a random port).
	Addr string

	// Port is the listen port.
	Port int

	// KeyPath is a PEM private key file for clients that authenticate with a
	// key. The server accepts any auth, but the key must parse client-side.
	KeyPath string

	ln   net.Listener
	done chan struct{}
}

type exitStatusMsg struct {
	Status uint32
}

// Start launches the server, writing a client key file into dir.
func Start(dir string) (*Server, error) {
	keyPath, err := writeClientKey(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := serverConfig()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		Addr:    ln.Addr().String(),
		Port:    ln.Addr().(*net.TCPAddr).Port,
		KeyPath: keyPath,
		ln:      ln,
		done:    make(chan struct{}),
	}

	go s.acceptLoop(cfg)
	return s, nil
}

// Close stops the listener.
func (s *Server) Close() error {
	close(s.done)
	return s.ln.Close()
}

func (s *Server) acceptLoop(cfg *ssh.ServerConfig) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			sshConn, channels, reqs, err := ssh.NewServerConn(conn, cfg)
			if err != nil {
				conn.Close()
				return
			}
			defer sshConn.Close()
			go ssh.DiscardRequests(reqs)
			for newChannel := range channels {
				go handleChannel(newChannel)
			}
		}()
	}
}

func handleChannel(newChannel ssh.NewChannel) {
	if newChannel.ChannelType() != "session" {
		newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
		return
	}
	channel, requests, err := newChannel.Accept()
	if err != nil {
		return
	}

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct {
				Command string
			}
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			runExec(channel, payload.Command)
			return

		case "subsystem":
			req.Reply(true, nil)
			go func() {
				defer channel.Close()
				srv, err := sftp.NewServer(channel)
				if err != nil {
					return
				}
				defer srv.Close()
				_ = srv.Serve()
			}()

		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// runExec runs command through the local shell, streaming stdout/stderr back
// separately and reporting the real exit status.
func runExec(channel ssh.Channel, command string) {
	defer channel.Close()

	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Stdout = channel
	cmd.Stderr = channel.Stderr()

	status := 0
	if err := cmd.Run(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			status = ee.ExitCode()
		} else {
			status = 127
		}
	}
	channel.SendRequest("exit-status", false, ssh.Marshal(&exitStatusMsg{Status: uint32(status)}))
	channel.CloseWrite()
}

func serverConfig() (*ssh.ServerConfig, error) {
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	hostKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		return nil, err
	}
	cfg.AddHostKey(signer)
	return cfg, nil
}

func writeClientKey(dir string) (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", err
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	path := filepath.Join(dir, "id_rsa")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return "", fmt.Errorf("write client key: %w", err)
	}
	return path, nil
}
