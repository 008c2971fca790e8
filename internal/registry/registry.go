// Package registry lists the managed servers and ranks fuzzy searches over
// their identifiers.
package registry

import (
	"github.com/Mandorlo/wordpress-mcp/internal/config"
)

// Registry answers queries about the servers declared in the configuration
// document. It is read-only and safe for concurrent use.
type Registry struct {
	doc *config.Document
}

// New returns a registry over doc.
func New(doc *config.Document) *Registry {
	return &Registry{doc: doc}
}

// ListIDs returns all server identifiers in document order.
func (r *Registry) ListIDs() []string {
	return r.doc.Servers.IDs()
}

// Info returns the raw record for id.
func (r *Registry) Info(id string) (*config.Server, error) {
	srv := r.doc.Servers.Get(id)
	if srv == nil {
		return nil, &config.NotFoundError{Kind: "server", ID: id}
	}
	return srv, nil
}
