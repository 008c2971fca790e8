// Package sshexec executes single commands on managed servers over SSH.
//
// Every call is single-flight: resolve the profile, dial, open one session,
// run one command, collect the separated streams, close. There is no
// connection pooling and no retry or timeout policy at this layer; callers
// bound latency through the context they pass to Run.
package sshexec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/Mandorlo/wordpress-mcp/internal/config"
	"github.com/Mandorlo/wordpress-mcp/internal/shellq"
)

// Result holds the complete output of one remote command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the remote command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Executor runs commands on servers resolved through the configuration.
type Executor struct {
	resolver *config.Resolver
	logger   *slog.Logger
}

// Option configures the executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an executor over resolver.
func New(resolver *config.Resolver, opts ...Option) *Executor {
	e := &Executor{
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one command line on targetID and returns the exit code and
// separated stdout/stderr streams. A non-zero exit is a normal Result;
// connection-level failures (unreadable key, unreachable host, rejected
// auth) return an error and no partial result.
func (e *Executor) Run(ctx context.Context, targetID, command string) (Result, error) {
	profile, err := e.resolver.Resolve(targetID)
	if err != nil {
		return Result{}, err
	}
	return e.runResolved(ctx, profile, command)
}

// RunWP executes a WP-CLI command inside the server's WordPress root:
// `cd <root> && wp <wpCommand>`.
func (e *Executor) RunWP(ctx context.Context, targetID, wpCommand string) (Result, error) {
	profile, err := e.resolver.Resolve(targetID)
	if err != nil {
		return Result{}, err
	}
	return e.runResolved(ctx, profile, WPCommand(profile.WPRootPath, wpCommand))
}

// WPCommand builds the managed-command line executed by RunWP.
func WPCommand(rootPath, wpCommand string) string {
	return fmt.Sprintf("cd %s && wp %s", shellq.Quote(rootPath), wpCommand)
}

func (e *Executor) runResolved(ctx context.Context, profile config.Profile, command string) (Result, error) {
	client, err := e.dial(ctx, profile)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	e.logger.Debug("running remote command",
		"target", profile.TargetID, "addr", profile.Addr(), "user", profile.Username)

	return runOnClient(client, command)
}

// runOnClient executes command over one fresh session of client.
func runOnClient(client *ssh.Client, command string) (Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return Result{}, errors.Wrap(err, "unable to create new session")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	res := Result{}
	switch t := session.Run(command).(type) {
	case nil:
		res.ExitCode = 0
	case *ssh.ExitError:
		res.ExitCode = t.Waitmsg.ExitStatus()
	case *ssh.ExitMissingError:
		res.ExitCode = -1
	default:
		return Result{}, errors.Wrap(t, "run of command failed")
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}

// dial opens an authenticated connection to the profile's address using its
// private key file.
func (e *Executor) dial(ctx context.Context, profile config.Profile) (*ssh.Client, error) {
	key, err := os.ReadFile(profile.PrivateKeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read private key %s", profile.PrivateKeyPath)
	}

	var signer ssh.Signer
	if profile.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(profile.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse private key %s", profile.PrivateKeyPath)
	}

	cc := &ssh.ClientConfig{
		User: profile.Username,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// Managed servers are declared in the operator's own config, so host
		// keys are not pinned here.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", profile.Addr())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to reach %s", profile.Addr())
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, profile.Addr(), cc)
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "unable to establish ssh connection to %s", profile.Addr())
	}
	return ssh.NewClient(c, chans, reqs), nil
}
