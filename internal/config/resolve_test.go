package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(t *testing.T, content string) *Document {
	t.Helper()
	doc, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	return doc
}

func TestResolveMergePrecedence(t *testing.T) {
	doc := testDoc(t, `{
		"ssh": {"port": 22, "username": "a", "privateKeyPath": "/keys/global"},
		"hostingProviders": {
			"acme": {"ssh": {"username": "b", "port": 2222}}
		},
		"servers": {
			"site1": {"name": "S", "host": "x.com", "hostingProvider": "acme",
				"ssh": {"username": "c"}}
		}
	}`)

	profile, err := NewResolver(doc).Resolve("site1")
	require.NoError(t, err)

	// later layers override only the fields they define
	assert.Equal(t, 2222, profile.Port)
	assert.Equal(t, "c", profile.Username)
	assert.Equal(t, "/keys/global", profile.PrivateKeyPath)
	assert.Equal(t, "x.com", profile.Host)
}

func TestResolveTemplateSubstitution(t *testing.T) {
	doc := testDoc(t, `{
		"ssh": {"username": "bob", "privateKeyPath": "/k", "wpRootPath": "/home/{username}/{host}"},
		"servers": {"s": {"name": "S", "host": "x.com"}}
	}`)

	profile, err := NewResolver(doc).Resolve("s")
	require.NoError(t, err)
	assert.Equal(t, "/home/bob/x.com", profile.WPRootPath)
}

func TestResolveDefaults(t *testing.T) {
	doc := testDoc(t, `{
		"ssh": {"username": "dep", "privateKeyPath": "/k"},
		"servers": {"s": {"name": "S", "host": "x.com"}}
	}`)

	profile, err := NewResolver(doc).Resolve("s")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, profile.Port)
	assert.Equal(t, "/home/dep/public_html", profile.WPRootPath)
	assert.Empty(t, profile.Passphrase)
}

func TestResolveMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "no username",
			content: `{"ssh": {"privateKeyPath": "/k"},
				"servers": {"s": {"name": "S", "host": "h"}}}`,
		},
		{
			name: "no private key",
			content: `{"ssh": {"username": "u"},
				"servers": {"s": {"name": "S", "host": "h"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDoc(t, tt.content)
			_, err := NewResolver(doc).Resolve("s")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestResolveUnknownServer(t *testing.T) {
	doc := testDoc(t, `{
		"ssh": {"username": "u", "privateKeyPath": "/k"},
		"servers": {"s": {"name": "S", "host": "h"}}
	}`)

	_, err := NewResolver(doc).Resolve("ghost")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "server", nf.Kind)
}

func TestResolveDanglingProviderFails(t *testing.T) {
	// Load validates references, so a dangling one only appears on documents
	// built in memory. Resolve must still refuse it.
	doc := &Document{
		SSH: &SSHSettings{Username: "u", PrivateKeyPath: "/k"},
	}
	require.NoError(t, doc.Servers.UnmarshalJSON([]byte(
		`{"s": {"name": "S", "host": "h", "hostingProvider": "ghost"}}`)))

	_, err := NewResolver(doc).Resolve("s")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "hosting provider", nf.Kind)
}

func TestResolveIsDeterministic(t *testing.T) {
	doc := testDoc(t, `{
		"ssh": {"username": "u", "privateKeyPath": "/k", "wpRootPath": "/srv/{host}"},
		"servers": {"s": {"name": "S", "host": "h.com"}}
	}`)

	r := NewResolver(doc)
	first, err := r.Resolve("s")
	require.NoError(t, err)
	second, err := r.Resolve("s")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProfileAddr(t *testing.T) {
	p := Profile{Host: "x.com", Port: 2200}
	assert.Equal(t, "x.com:2200", p.Addr())
}
