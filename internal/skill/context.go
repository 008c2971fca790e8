package skill

import (
	"context"

	"github.com/Mandorlo/wordpress-mcp/internal/phpexec"
	"github.com/Mandorlo/wordpress-mcp/internal/sshexec"
)

// Context exposes the three execution primitives pre-bound to one server, so
// skill scripts never see connection settings or credentials.
type Context struct {
	// TargetID is the server this context is bound to.
	TargetID string

	exec   *sshexec.Executor
	runner *phpexec.Runner
}

// NewContext binds the execution primitives to targetID.
func NewContext(targetID string, exec *sshexec.Executor, runner *phpexec.Runner) *Context {
	return &Context{TargetID: targetID, exec: exec, runner: runner}
}

// Run executes a raw shell command on the bound server.
func (c *Context) Run(ctx context.Context, command string) (sshexec.Result, error) {
	return c.exec.Run(ctx, c.TargetID, command)
}

// RunWP executes a WP-CLI command inside the server's WordPress root.
func (c *Context) RunWP(ctx context.Context, wpCommand string) (sshexec.Result, error) {
	return c.exec.RunWP(ctx, c.TargetID, wpCommand)
}

// RunScript executes a PHP payload on the bound server.
func (c *Context) RunScript(ctx context.Context, codeOrPath string, opts phpexec.Options) phpexec.ScriptResult {
	return c.runner.RunScript(ctx, c.TargetID, codeOrPath, opts)
}

// RunSkillScript resolves script inside sk and executes it in file mode with
// args on the bound server.
func (c *Context) RunSkillScript(ctx context.Context, sk Skill, script string, args []string) (phpexec.ScriptResult, error) {
	p, err := sk.ScriptPath(script)
	if err != nil {
		return phpexec.ScriptResult{}, err
	}
	return c.RunScript(ctx, p, phpexec.Options{Mode: phpexec.ModeFile, Args: args}), nil
}
