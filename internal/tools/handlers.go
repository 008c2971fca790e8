package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mandorlo/wordpress-mcp/internal/phpexec"
	"github.com/Mandorlo/wordpress-mcp/internal/skill"
	"github.com/Mandorlo/wordpress-mcp/internal/sshexec"
)

// register wires every tool of the gateway.
func (r *Registry) register() {
	r.add("wp_list_sites",
		"List all managed WordPress sites with their display name and host.",
		`{"type":"object","properties":{},"additionalProperties":false}`,
		r.listSites)

	r.add("wp_site_info",
		"Show the declared configuration record of one site.",
		`{"type":"object","properties":{
			"site":{"type":"string","description":"Site identifier"}
		},"required":["site"],"additionalProperties":false}`,
		r.siteInfo)

	r.add("wp_search_sites",
		"Fuzzy-search sites by host or name. Prefix match by default; start the query with * or % for suffix match.",
		`{"type":"object","properties":{
			"query":{"type":"string","description":"Search query"}
		},"required":["query"],"additionalProperties":false}`,
		r.searchSites)

	r.add("ssh_run_command",
		"Run a raw shell command on a site's server over SSH.",
		`{"type":"object","properties":{
			"site":{"type":"string","description":"Site identifier"},
			"command":{"type":"string","description":"Shell command line"}
		},"required":["site","command"],"additionalProperties":false}`,
		r.runCommand)

	r.add("wp_cli",
		"Run a WP-CLI command inside the site's WordPress root (the leading 'wp' is implied).",
		`{"type":"object","properties":{
			"site":{"type":"string","description":"Site identifier"},
			"command":{"type":"string","description":"WP-CLI arguments, e.g. 'plugin list --format=json'"}
		},"required":["site","command"],"additionalProperties":false}`,
		r.wpCLI)

	r.add("wp_execute_php",
		"Execute a block of PHP code (or a local .php file) on the site via a temporary remote file and wp eval-file.",
		`{"type":"object","properties":{
			"site":{"type":"string","description":"Site identifier"},
			"code":{"type":"string","description":"PHP code, or a local file path"},
			"mode":{"type":"string","enum":["auto","file","code"],"description":"How to interpret 'code' (default auto)"},
			"args":{"type":"array","items":{"type":"string"},"description":"Positional script arguments"}
		},"required":["site","code"],"additionalProperties":false}`,
		r.executePHP)

	r.add("wp_list_skills",
		"List the installed skills and their payload scripts.",
		`{"type":"object","properties":{},"additionalProperties":false}`,
		r.listSkills)

	r.add("wp_run_skill",
		"Run one payload script of an installed skill against a site.",
		`{"type":"object","properties":{
			"site":{"type":"string","description":"Site identifier"},
			"skill":{"type":"string","description":"Skill name"},
			"script":{"type":"string","description":"Script file name inside the skill"},
			"args":{"type":"array","items":{"type":"string"},"description":"Positional script arguments"}
		},"required":["site","skill","script"],"additionalProperties":false}`,
		r.runSkill)
}

func (r *Registry) listSites(ctx context.Context, args map[string]any) (string, error) {
	ids := r.sites.ListIDs()
	var b strings.Builder
	fmt.Fprintf(&b, "%d site(s):\n", len(ids))
	for _, id := range ids {
		srv, err := r.sites.Info(id)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", id, srv.Name, srv.Host)
	}
	return b.String(), nil
}

func (r *Registry) siteInfo(ctx context.Context, args map[string]any) (string, error) {
	id, err := stringArg(args, "site")
	if err != nil {
		return "", err
	}
	srv, err := r.sites.Info(id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  name: %s\n  host: %s\n", id, srv.Name, srv.Host)
	if srv.HostingProvider != "" {
		fmt.Fprintf(&b, "  hosting provider: %s\n", srv.HostingProvider)
	}
	return b.String(), nil
}

func (r *Registry) searchSites(ctx context.Context, args map[string]any) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}

	matches := r.sites.Search(query, nil)
	if len(matches) == 0 {
		return fmt.Sprintf("no site matches %q", query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d match(es):\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(&b, "- %s (%s match, score %d)\n", m.ID, m.Field, m.Score)
	}
	return b.String(), nil
}

func (r *Registry) runCommand(ctx context.Context, args map[string]any) (string, error) {
	site, err := stringArg(args, "site")
	if err != nil {
		return "", err
	}
	command, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}

	res, err := r.exec.Run(ctx, site, command)
	if err != nil {
		return "", err
	}
	return renderResult(res)
}

func (r *Registry) wpCLI(ctx context.Context, args map[string]any) (string, error) {
	site, err := stringArg(args, "site")
	if err != nil {
		return "", err
	}
	command, err := stringArg(args, "command")
	if err != nil {
		return "", err
	}

	res, err := r.exec.RunWP(ctx, site, command)
	if err != nil {
		return "", err
	}
	return renderResult(res)
}

func (r *Registry) executePHP(ctx context.Context, args map[string]any) (string, error) {
	site, err := stringArg(args, "site")
	if err != nil {
		return "", err
	}
	code, err := stringArg(args, "code")
	if err != nil {
		return "", err
	}
	scriptArgs, err := stringSliceArg(args, "args")
	if err != nil {
		return "", err
	}

	mode := phpexec.ModeAuto
	if m, ok := args["mode"].(string); ok && m != "" {
		switch phpexec.Mode(m) {
		case phpexec.ModeAuto, phpexec.ModeFile, phpexec.ModeCode:
			mode = phpexec.Mode(m)
		default:
			return "", fmt.Errorf("invalid mode %q", m)
		}
	}

	res := r.runner.RunScript(ctx, site, code, phpexec.Options{Mode: mode, Args: scriptArgs})
	return renderScriptResult(res)
}

func (r *Registry) listSkills(ctx context.Context, args map[string]any) (string, error) {
	if len(r.skills) == 0 {
		return "no skills installed", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d skill(s):\n", len(r.skills))
	for _, sk := range r.skills {
		fmt.Fprintf(&b, "- %s: %s\n", sk.Name, sk.Description)
		for _, script := range sk.Scripts {
			fmt.Fprintf(&b, "    %s\n", script)
		}
	}
	return b.String(), nil
}

func (r *Registry) runSkill(ctx context.Context, args map[string]any) (string, error) {
	site, err := stringArg(args, "site")
	if err != nil {
		return "", err
	}
	name, err := stringArg(args, "skill")
	if err != nil {
		return "", err
	}
	script, err := stringArg(args, "script")
	if err != nil {
		return "", err
	}
	scriptArgs, err := stringSliceArg(args, "args")
	if err != nil {
		return "", err
	}

	var found *skill.Skill
	for i := range r.skills {
		if r.skills[i].Name == name {
			found = &r.skills[i]
			break
		}
	}
	if found == nil {
		return "", fmt.Errorf("unknown skill %q", name)
	}

	sctx := skill.NewContext(site, r.exec, r.runner)
	res, err := sctx.RunSkillScript(ctx, *found, script, scriptArgs)
	if err != nil {
		return "", err
	}
	return renderScriptResult(res)
}

// renderResult formats a command result as human-readable text. A non-zero
// exit is a failed result (error return), with both streams preserved.
func renderResult(res sshexec.Result) (string, error) {
	text := renderStreams(res.ExitCode, res.Stdout, res.Stderr)
	if !res.Success() {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

func renderScriptResult(res phpexec.ScriptResult) (string, error) {
	var b strings.Builder
	b.WriteString(renderStreams(res.ExitCode, res.Stdout, res.Stderr))
	if res.Data != nil {
		b.WriteString("\n(stdout parsed as JSON)")
	}
	if !res.Success() {
		fmt.Fprintf(&b, "\nerror: %s", strings.TrimSpace(res.Error))
		return "", fmt.Errorf("%s", b.String())
	}
	return b.String(), nil
}

func renderStreams(exitCode int, stdout, stderr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d", exitCode)
	if s := strings.TrimSpace(stdout); s != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", s)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	return b.String()
}
