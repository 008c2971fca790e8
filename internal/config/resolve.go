package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	// DefaultPort is used when no layer defines an SSH port.
	DefaultPort = 22

	// DefaultRootTemplate is used when no layer defines wpRootPath.
	DefaultRootTemplate = "/home/{username}/public_html"
)

// Profile is the fully merged, validated connection profile for one server.
// All fields are populated after a successful Resolve except Passphrase,
// which stays empty for unencrypted keys.
type Profile struct {
	TargetID       string
	Host           string
	Port           int
	Username       string
	PrivateKeyPath string
	Passphrase     string

	// WPRootPath is the WordPress root on the server, with {username} and
	// {host} placeholders already substituted.
	WPRootPath string
}

// Addr returns the host:port dial address.
func (p Profile) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Resolver merges the configuration layers into connection profiles. It holds
// a reference to the loaded document and is safe for concurrent use: every
// Resolve call recomputes the profile from the read-only document.
type Resolver struct {
	doc *Document
}

// NewResolver returns a resolver over doc.
func NewResolver(doc *Document) *Resolver {
	return &Resolver{doc: doc}
}

// Resolve merges global, provider, and server SSH settings for targetID,
// later layers overriding earlier ones field-by-field, and validates that the
// merged profile is complete.
func (r *Resolver) Resolve(targetID string) (Profile, error) {
	srv := r.doc.Servers.Get(targetID)
	if srv == nil {
		return Profile{}, &NotFoundError{Kind: "server", ID: targetID}
	}

	merged := SSHSettings{}
	merge(&merged, r.doc.SSH)
	if srv.HostingProvider != "" {
		p, ok := r.doc.HostingProviders[srv.HostingProvider]
		if !ok {
			return Profile{}, &NotFoundError{Kind: "hosting provider", ID: srv.HostingProvider}
		}
		merge(&merged, p.SSH)
	}
	merge(&merged, srv.SSH)

	if merged.Username == "" {
		return Profile{}, fmt.Errorf("%w: server %q: no username resolved", ErrInvalidConfig, targetID)
	}
	if merged.PrivateKeyPath == "" {
		return Profile{}, fmt.Errorf("%w: server %q: no privateKeyPath resolved", ErrInvalidConfig, targetID)
	}
	if merged.Port == 0 {
		merged.Port = DefaultPort
	}
	if merged.WPRootPath == "" {
		merged.WPRootPath = DefaultRootTemplate
	}

	return Profile{
		TargetID:       targetID,
		Host:           srv.Host,
		Port:           merged.Port,
		Username:       merged.Username,
		PrivateKeyPath: merged.PrivateKeyPath,
		Passphrase:     merged.Passphrase,
		WPRootPath:     expandRootPath(merged.WPRootPath, merged.Username, srv.Host),
	}, nil
}

// merge copies the defined fields of layer onto dst. Field-by-field, never
// whole-object: a layer overriding only the port leaves the rest intact.
func merge(dst *SSHSettings, layer *SSHSettings) {
	if layer == nil {
		return
	}
	if layer.Port != 0 {
		dst.Port = layer.Port
	}
	if layer.Username != "" {
		dst.Username = layer.Username
	}
	if layer.PrivateKeyPath != "" {
		dst.PrivateKeyPath = layer.PrivateKeyPath
	}
	if layer.Passphrase != "" {
		dst.Passphrase = layer.Passphrase
	}
	if layer.WPRootPath != "" {
		dst.WPRootPath = layer.WPRootPath
	}
}

// expandRootPath substitutes all occurrences of the literal {username} and
// {host} placeholders. Substitution is case-sensitive.
func expandRootPath(tmpl, username, host string) string {
	out := strings.ReplaceAll(tmpl, "{username}", username)
	return strings.ReplaceAll(out, "{host}", host)
}
