// Package tools exposes the gateway operations to an external AI-agent
// caller: a registry of named, JSON-schema'd tools and a stdio JSON-RPC
// server dispatching calls into the core packages. Expected failures are
// rendered as failed tool results, never as transport errors or panics.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Mandorlo/wordpress-mcp/internal/phpexec"
	"github.com/Mandorlo/wordpress-mcp/internal/registry"
	"github.com/Mandorlo/wordpress-mcp/internal/skill"
	"github.com/Mandorlo/wordpress-mcp/internal/sshexec"
)

// Handler executes one tool call and returns the text to show the caller.
// An error marks the result as failed; its message is the result text.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool is one agent-callable operation.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`

	handler Handler
}

// Registry holds the gateway's tool set wired to the core packages.
type Registry struct {
	sites  *registry.Registry
	exec   *sshexec.Executor
	runner *phpexec.Runner
	skills []skill.Skill
	logger *slog.Logger

	tools  []Tool
	byName map[string]int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithSkills makes the discovered skills callable through wp_run_skill.
func WithSkills(skills []skill.Skill) RegistryOption {
	return func(r *Registry) {
		r.skills = skills
	}
}

// NewRegistry wires the full tool set.
func NewRegistry(sites *registry.Registry, exec *sshexec.Executor, runner *phpexec.Runner, opts ...RegistryOption) *Registry {
	r := &Registry{
		sites:  sites,
		exec:   exec,
		runner: runner,
		logger: slog.Default(),
		byName: map[string]int{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.register()
	return r
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Call dispatches one tool invocation. isError is true for every expected
// failure (unknown tool, bad arguments, failed operation); text always
// carries a human-readable message.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (text string, isError bool) {
	i, ok := r.byName[name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", name), true
	}

	r.logger.Debug("tool call", "tool", name)

	out, err := r.tools[i].handler(ctx, args)
	if err != nil {
		return err.Error(), true
	}
	return out, false
}

func (r *Registry) add(name, description string, schema string, h Handler) {
	t := Tool{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(schema),
		handler:     h,
	}
	r.tools = append(r.tools, t)
	r.byName[name] = len(r.tools) - 1
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// stringSliceArg extracts an optional list-of-strings argument.
func stringSliceArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must be an array of strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
