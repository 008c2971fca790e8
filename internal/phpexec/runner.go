package phpexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Mandorlo/wordpress-mcp/internal/config"
	"github.com/Mandorlo/wordpress-mcp/internal/shellq"
	"github.com/Mandorlo/wordpress-mcp/internal/sshexec"
)

// defaultEvalCommand runs the payload file through WP-CLI.
const defaultEvalCommand = "wp eval-file"

// Options configure one RunScript call.
type Options struct {
	// Mode selects file/code/auto interpretation (default auto).
	Mode Mode

	// Args are passed to the payload as positional script arguments. Each is
	// individually shell-quoted before transmission.
	Args []string
}

// ScriptResult is the outcome of one payload execution. Expected failures
// (validation, transport, non-zero remote exit) are reported here rather
// than as errors, so callers across the tool boundary never see panics or
// raw faults.
type ScriptResult struct {
	ExitCode int
	Stdout   string
	Stderr   string

	// Data is the parsed JSON value of trimmed stdout, when stdout is valid
	// JSON; nil otherwise. Non-JSON output is valid and stays in Stdout.
	Data any

	// Error is non-empty exactly when the execution failed.
	Error string

	// Source records whether the payload came from a file or inline code.
	Source Source
}

// Success reports whether the payload ran and exited zero.
func (r ScriptResult) Success() bool {
	return r.ExitCode == 0 && r.Error == ""
}

// Runner executes PHP payloads against managed servers.
type Runner struct {
	resolver    *config.Resolver
	exec        *sshexec.Executor
	evalCommand string
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithEvalCommand overrides the remote command that executes the payload
// file (default "wp eval-file"). Useful for hosts shipping WP-CLI under a
// different name, and for tests.
func WithEvalCommand(cmd string) RunnerOption {
	return func(r *Runner) {
		r.evalCommand = cmd
	}
}

// NewRunner creates a runner over resolver and exec.
func NewRunner(resolver *config.Resolver, exec *sshexec.Executor, opts ...RunnerOption) *Runner {
	r := &Runner{
		resolver:    resolver,
		exec:        exec,
		evalCommand: defaultEvalCommand,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript validates, ships, and executes a PHP payload on targetID. The
// input is inline code or a local file path, per opts.Mode. Every failure
// mode is converted into a ScriptResult (exit code -1 for pipeline
// failures); this method never panics and never returns an error.
func (rn *Runner) RunScript(ctx context.Context, targetID, codeOrPath string, opts Options) ScriptResult {
	source := SourceCode
	fail := func(err error) ScriptResult {
		return ScriptResult{ExitCode: -1, Error: err.Error(), Source: source}
	}

	// argument caps, checked before touching anything
	if len(opts.Args) > MaxArgs {
		return fail(&ValidationError{Msg: fmt.Sprintf("too many arguments: %d (max %d)", len(opts.Args), MaxArgs)})
	}
	total := 0
	for _, a := range opts.Args {
		total += len(a)
	}
	if total > MaxArgsBytes {
		return fail(&ValidationError{Msg: fmt.Sprintf("arguments too large: %d bytes (max %d)", total, MaxArgsBytes)})
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}
	code, src, err := resolveSource(codeOrPath, mode)
	source = src
	if err != nil {
		return fail(err)
	}

	if err := CheckSyntax(code); err != nil {
		return fail(err)
	}

	profile, err := rn.resolver.Resolve(targetID)
	if err != nil {
		return fail(err)
	}

	tmpName := remoteTempName()
	command := BuildRemoteCommand(
		profile.WPRootPath, code, tmpName, newDelimiter(code),
		rn.evalCommand, shellq.QuoteAll(opts.Args),
	)

	rn.logger.Debug("running php payload",
		"target", targetID, "source", string(source), "tmp", tmpName, "args", len(opts.Args))

	run, err := rn.exec.Run(ctx, targetID, command)
	if err != nil {
		return fail(err)
	}
	return interpret(run, source)
}

// interpret converts a raw command result into a ScriptResult: best-effort
// JSON parse of stdout, and a guaranteed non-empty Error on failure.
func interpret(run sshexec.Result, source Source) ScriptResult {
	res := ScriptResult{
		ExitCode: run.ExitCode,
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
		Source:   source,
	}

	if trimmed := strings.TrimSpace(run.Stdout); trimmed != "" {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			res.Data = v
		}
	}

	if run.ExitCode != 0 {
		if msg := strings.TrimSpace(run.Stderr); msg != "" {
			res.Error = run.Stderr
		} else {
			res.Error = fmt.Sprintf("exit code %d", run.ExitCode)
		}
	}
	return res
}
