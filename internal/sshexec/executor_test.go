package sshexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mandorlo/wordpress-mcp/internal/config"
	"github.com/Mandorlo/wordpress-mcp/internal/sshtest"
)

// newTestExecutor starts an in-process SSH server and wires an executor with
// the canonical layered test document: provider acme carries the port,
// the server record carries the username.
func newTestExecutor(t *testing.T) (*Executor, string) {
	t.Helper()

	srv, err := sshtest.Start(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	root := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "wp-mcp.json")
	cfg := fmt.Sprintf(`{
		"ssh": {"privateKeyPath": %q, "wpRootPath": %q},
		"hostingProviders": {
			"acme": {"ssh": {"port": %d}}
		},
		"servers": {
			"site1": {"name": "Site One", "host": "127.0.0.1",
				"hostingProvider": "acme", "ssh": {"username": "dep"}}
		}
	}`, srv.KeyPath, root, srv.Port)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	doc, err := config.Load(cfgPath)
	require.NoError(t, err)

	return New(config.NewResolver(doc)), root
}

func TestRunEcho(t *testing.T) {
	e, _ := newTestExecutor(t)

	res, err := e.Run(context.Background(), "site1", "echo hi")
	require.NoError(t, err)
	assert.Equal(t, Result{ExitCode: 0, Stdout: "hi\n", Stderr: ""}, res)
	assert.True(t, res.Success())
}

func TestRunNonZeroExit(t *testing.T) {
	e, _ := newTestExecutor(t)

	// a non-zero exit is a normal result, not an error
	res, err := e.Run(context.Background(), "site1", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
}

func TestRunSeparatesStreams(t *testing.T) {
	e, _ := newTestExecutor(t)

	res, err := e.Run(context.Background(), "site1", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunUnknownTarget(t *testing.T) {
	e, _ := newTestExecutor(t)

	_, err := e.Run(context.Background(), "ghost", "echo hi")
	require.Error(t, err)

	var nf *config.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestRunUnreadableKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "wp-mcp.json")
	cfg := `{
		"ssh": {"username": "u", "privateKeyPath": "/nonexistent/key"},
		"servers": {"s": {"name": "S", "host": "127.0.0.1"}}
	}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	doc, err := config.Load(cfgPath)
	require.NoError(t, err)

	_, err = New(config.NewResolver(doc)).Run(context.Background(), "s", "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}

func TestRunUnreachableHost(t *testing.T) {
	srv, err := sshtest.Start(t.TempDir())
	require.NoError(t, err)
	port := srv.Port
	require.NoError(t, srv.Close())

	cfgPath := filepath.Join(t.TempDir(), "wp-mcp.json")
	cfg := fmt.Sprintf(`{
		"ssh": {"username": "u", "privateKeyPath": %q, "port": %d},
		"servers": {"s": {"name": "S", "host": "127.0.0.1"}}
	}`, srv.KeyPath, port)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	doc, err := config.Load(cfgPath)
	require.NoError(t, err)

	_, err = New(config.NewResolver(doc)).Run(context.Background(), "s", "echo hi")
	require.Error(t, err)
}

func TestRunWPPrefixesRoot(t *testing.T) {
	e, root := newTestExecutor(t)

	// the in-process server has no wp binary; pwd via the composite command
	// still proves the cd prefix ran in the resolved root
	res, err := e.Run(context.Background(), "site1", WPCommand(root, "--version")+" 2>/dev/null; pwd")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, root)
}

func TestWPCommand(t *testing.T) {
	assert.Equal(t, "cd /var/www && wp plugin list", WPCommand("/var/www", "plugin list"))
	assert.Equal(t, "cd '/var/www/my site' && wp core version", WPCommand("/var/www/my site", "core version"))
}

func TestUploadDownload(t *testing.T) {
	e, root := newTestExecutor(t)
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello sftp"), 0o600))

	// relative remote paths land under the resolved WordPress root
	require.NoError(t, e.Upload(ctx, "site1", local, "note.txt"))

	remote, err := os.ReadFile(filepath.Join(root, "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello sftp", string(remote))

	back := filepath.Join(t.TempDir(), "back.txt")
	require.NoError(t, e.Download(ctx, "site1", "note.txt", back))

	b, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "hello sftp", string(b))
}

func TestUploadMissingLocalFile(t *testing.T) {
	e, _ := newTestExecutor(t)

	err := e.Upload(context.Background(), "site1", "/nonexistent/file", "x")
	require.Error(t, err)
}
