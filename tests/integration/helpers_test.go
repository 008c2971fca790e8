package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"golang.org/x/crypto/ssh"
)

// execInContainer runs a command in the container and returns its exit code
// and stdout. Docker multiplexes stdout/stderr on one stream, so the output
// has to be demuxed with stdcopy.
func execInContainer(ctx context.Context, container testcontainers.Container, cmd []string) (int, string, error) {
	exitCode, reader, err := container.Exec(ctx, cmd)
	if err != nil {
		return exitCode, "", err
	}

	var stdout, stderr bytes.Buffer
	_, _ = stdcopy.StdCopy(&stdout, &stderr, reader)

	return exitCode, stdout.String(), nil
}

// assertRemoteFileExists checks that a file exists inside the container.
func assertRemoteFileExists(t *testing.T, ctx context.Context, container testcontainers.Container, path string) {
	t.Helper()
	exitCode, _, err := execInContainer(ctx, container, []string{"test", "-e", path})
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode, "file %s should exist", path)
}

// assertRemoteFileContains checks that a file in the container contains all
// expected substrings.
func assertRemoteFileContains(t *testing.T, ctx context.Context, container testcontainers.Container, path string, expected []string) {
	t.Helper()
	exitCode, content, err := execInContainer(ctx, container, []string{"cat", path})
	require.NoError(t, err)
	require.Equal(t, 0, exitCode, "failed to read file %s", path)

	for _, substr := range expected {
		assert.Contains(t, content, substr, "file %s should contain %q", path, substr)
	}
}

// generateKeyPair writes an unencrypted RSA private key and the matching
// authorized_keys line into dir and returns their paths.
func generateKeyPair(t *testing.T, dir string) (privPath, pubPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPath = filepath.Join(dir, "id_rsa")
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pub, err := ssh.NewPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath = filepath.Join(dir, "id_rsa.pub")
	require.NoError(t, os.WriteFile(pubPath, ssh.MarshalAuthorizedKey(pub), 0o600))

	return privPath, pubPath
}

// writeTestConfig writes a config file that resolves the wp-primary target
// to the test container.
func writeTestConfig(t *testing.T, dir, host string, port int, keyPath string) string {
	t.Helper()

	cfg := fmt.Sprintf(`{
  "ssh": {
    "username": "dep",
    "privateKeyPath": %q,
    "wpRootPath": "/home/dep/public_html"
  },
  "servers": {
    "wp-primary": {
      "name": "Primary Test Site",
      "host": %q,
      "ssh": {"port": %d}
    }
  }
}`, keyPath, host, port)

	path := filepath.Join(dir, "wp-mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}
