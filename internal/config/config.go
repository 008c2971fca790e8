// Package config loads and resolves the layered gateway configuration.
//
// The configuration document describes the managed WordPress servers: a global
// SSH defaults block, named hosting-provider presets, and per-server records.
// Load validates the whole document up front; Resolver merges the three layers
// into a complete connection profile for one server.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidConfig tags every document validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// NotFoundError reports an unknown server or hosting-provider identifier.
type NotFoundError struct {
	// Kind is "server" or "hosting provider".
	Kind string

	// ID is the identifier that failed to resolve.
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// SSHSettings is the reusable connection-defaults block. It appears at the
// global, provider, and server layer; any field left unset falls through to
// the layer below during resolution.
type SSHSettings struct {
	// Port is the SSH port (default 22).
	Port int `json:"port,omitempty"`

	// Username is the SSH login user.
	Username string `json:"username,omitempty"`

	// PrivateKeyPath is the local path to the private key file.
	PrivateKeyPath string `json:"privateKeyPath,omitempty"`

	// Passphrase unlocks the private key if it is encrypted.
	Passphrase string `json:"passphrase,omitempty"`

	// WPRootPath is the WordPress root directory on the server. It may embed
	// the literal placeholders {username} and {host}.
	WPRootPath string `json:"wpRootPath,omitempty"`
}

// Provider is a named, reusable bundle of connection defaults that server
// records reference by name.
type Provider struct {
	SSH *SSHSettings `json:"ssh,omitempty"`
}

// Server describes one managed WordPress server.
type Server struct {
	// Name is the display name.
	Name string `json:"name"`

	// Host is the hostname or IP the SSH connection targets.
	Host string `json:"host"`

	// HostingProvider optionally references a key in the document's
	// hostingProviders mapping.
	HostingProvider string `json:"hostingProvider,omitempty"`

	// SSH holds per-server overrides applied on top of the provider layer.
	SSH *SSHSettings `json:"ssh,omitempty"`
}

// Document is the validated configuration document. It is loaded once at
// startup and read-only thereafter; Resolver and the registry hold a
// reference to it rather than going through ambient state.
type Document struct {
	SSH              *SSHSettings `json:"ssh,omitempty"`
	HostingProviders ProviderMap  `json:"hostingProviders,omitempty"`
	Servers          ServerMap    `json:"servers"`
}

// ProviderMap is the hostingProviders mapping. Provider names are unique;
// decoding rejects duplicate keys instead of letting the last entry win.
type ProviderMap map[string]*Provider

// UnmarshalJSON decodes the providers object, rejecting duplicate keys and
// unknown fields inside each preset.
func (m *ProviderMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("hostingProviders must be an object")
	}

	out := ProviderMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)
		if _, dup := out[name]; dup {
			return fmt.Errorf("duplicate hosting provider %q", name)
		}

		var p Provider
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("hosting provider %q: %w", name, err)
		}
		out[name] = &p
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// ServerMap is an order-preserving mapping of server ID to record. JSON
// objects lose key order through map decoding, but listing servers must
// follow document order, so decoding goes through the token stream.
type ServerMap struct {
	ids     []string
	entries map[string]*Server
}

// IDs returns the server identifiers in document order.
func (m *ServerMap) IDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Get returns the record for id, or nil if unknown.
func (m *ServerMap) Get(id string) *Server {
	return m.entries[id]
}

// Len returns the number of servers.
func (m *ServerMap) Len() int {
	return len(m.ids)
}

// UnmarshalJSON decodes the servers object, preserving key order, rejecting
// duplicate keys and unknown fields inside each record.
func (m *ServerMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("servers must be an object")
	}

	m.ids = nil
	m.entries = map[string]*Server{}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id := keyTok.(string)
		if _, dup := m.entries[id]; dup {
			return fmt.Errorf("duplicate server %q", id)
		}

		var srv Server
		if err := dec.Decode(&srv); err != nil {
			return fmt.Errorf("server %q: %w", id, err)
		}

		m.ids = append(m.ids, id)
		m.entries[id] = &srv
	}

	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON re-emits the servers object in document order.
func (m *ServerMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.entries[id])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Load reads, parses, and validates the configuration document at path.
// Any failure (missing file, malformed JSON, unknown fields, failed
// validation) returns an error and no document: there is no partial load.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &doc, nil
}

// Validate checks the document for structural errors: required server fields,
// dangling hostingProvider references, and out-of-range ports at any layer.
func (d *Document) Validate() error {
	if d.Servers.Len() == 0 {
		return fmt.Errorf("%w: no servers defined", ErrInvalidConfig)
	}

	if err := validateSSH("ssh", d.SSH); err != nil {
		return err
	}
	for name, p := range d.HostingProviders {
		if p == nil {
			return fmt.Errorf("%w: hosting provider %q is empty", ErrInvalidConfig, name)
		}
		if err := validateSSH(fmt.Sprintf("hosting provider %q", name), p.SSH); err != nil {
			return err
		}
	}

	for _, id := range d.Servers.ids {
		srv := d.Servers.entries[id]
		if srv.Name == "" {
			return fmt.Errorf("%w: server %q: missing name", ErrInvalidConfig, id)
		}
		if srv.Host == "" {
			return fmt.Errorf("%w: server %q: missing host", ErrInvalidConfig, id)
		}
		if srv.HostingProvider != "" {
			if _, ok := d.HostingProviders[srv.HostingProvider]; !ok {
				return fmt.Errorf("%w: server %q references unknown hosting provider %q",
					ErrInvalidConfig, id, srv.HostingProvider)
			}
		}
		if err := validateSSH(fmt.Sprintf("server %q", id), srv.SSH); err != nil {
			return err
		}
	}
	return nil
}

func validateSSH(where string, s *SSHSettings) error {
	if s == nil {
		return nil
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidConfig, where, s.Port)
	}
	return nil
}
