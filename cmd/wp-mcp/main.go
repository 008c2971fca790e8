// Package main is the entrypoint for the wp-mcp gateway CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mandorlo/wordpress-mcp/internal/config"
	"github.com/Mandorlo/wordpress-mcp/internal/phpexec"
	"github.com/Mandorlo/wordpress-mcp/internal/registry"
	"github.com/Mandorlo/wordpress-mcp/internal/skill"
	"github.com/Mandorlo/wordpress-mcp/internal/sshexec"
	"github.com/Mandorlo/wordpress-mcp/internal/tools"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath string
	skillsDir  string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wp-mcp",
	Short: "wp-mcp - WordPress remote-management gateway",
	Long: `wp-mcp manages a fleet of WordPress sites over SSH.

It resolves each site's connection profile from a layered JSON
configuration, runs shell and WP-CLI commands remotely, ships ad-hoc PHP
payloads through temporary files, and exposes all of it as tools to an
AI-agent caller over stdio.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "wp-mcp.json", "Path to the gateway configuration file")
	rootCmd.PersistentFlags().StringVar(&skillsDir, "skills", "skills", "Directory containing installed skills")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(runCommand)
	rootCmd.AddCommand(wpCmd)
	rootCmd.AddCommand(phpCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)

	targetsCmd.AddCommand(targetsListCmd)
	targetsCmd.AddCommand(targetsInfoCmd)
	targetsCmd.AddCommand(targetsSearchCmd)

	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsRunCmd)

	phpCmd.Flags().StringSlice("arg", nil, "Positional script argument (repeatable)")
	phpCmd.Flags().String("mode", "auto", "Input interpretation: auto, file, or code")
	skillsRunCmd.Flags().StringSlice("arg", nil, "Positional script argument (repeatable)")
}

// app bundles the wired core components.
type app struct {
	doc      *config.Document
	registry *registry.Registry
	exec     *sshexec.Executor
	runner   *phpexec.Runner
	logger   *slog.Logger
}

// newApp loads the configuration and wires the core. A missing or invalid
// configuration fails here, before any command logic runs.
func newApp() (*app, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	doc, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	resolver := config.NewResolver(doc)
	exec := sshexec.New(resolver, sshexec.WithLogger(logger))
	runner := phpexec.NewRunner(resolver, exec, phpexec.WithLogger(logger))

	return &app{
		doc:      doc,
		registry: registry.New(doc),
		exec:     exec,
		runner:   runner,
		logger:   logger,
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()
	return ctx, cancel
}

// serveCmd runs the stdio tool server for an AI-agent caller.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway tools over stdio",
	Long: `Start the agent-facing tool server. Requests and responses are
line-delimited JSON-RPC 2.0 on stdin/stdout; logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		skills, err := skill.Discover(skillsDir)
		if err != nil {
			return err
		}
		a.logger.Info("serving", "sites", a.doc.Servers.Len(), "skills", len(skills))

		reg := tools.NewRegistry(a.registry, a.exec, a.runner,
			tools.WithLogger(a.logger), tools.WithSkills(skills))

		ctx, cancel := signalContext()
		defer cancel()
		return tools.NewServer(reg, a.logger).Serve(ctx, os.Stdin, os.Stdout)
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect the managed sites",
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all site identifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		for _, id := range a.registry.ListIDs() {
			srv, err := a.registry.Info(id)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", id, srv.Name, srv.Host)
		}
		return nil
	},
}

var targetsInfoCmd = &cobra.Command{
	Use:   "info <site>",
	Short: "Show one site's declared record and resolved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		srv, err := a.registry.Info(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("name: %s\nhost: %s\n", srv.Name, srv.Host)
		if srv.HostingProvider != "" {
			fmt.Printf("hosting provider: %s\n", srv.HostingProvider)
		}

		profile, err := config.NewResolver(a.doc).Resolve(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("address: %s\nuser: %s\nwp root: %s\n",
			profile.Addr(), profile.Username, profile.WPRootPath)
		return nil
	},
}

var targetsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search sites by host or name",
	Long: `Search site hosts and names. Matching is prefix-based; start the
query with * or % to match suffixes instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		for _, m := range a.registry.Search(args[0], nil) {
			fmt.Printf("%s\t%s\t%d\n", m.ID, m.Field, m.Score)
		}
		return nil
	},
}

var runCommand = &cobra.Command{
	Use:   "run <site> -- <command...>",
	Short: "Run a raw shell command on a site's server",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := a.exec.Run(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var wpCmd = &cobra.Command{
	Use:   "wp <site> -- <wp-cli args...>",
	Short: "Run a WP-CLI command inside the site's WordPress root",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := a.exec.RunWP(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var phpCmd = &cobra.Command{
	Use:   "php <site> <code-or-file>",
	Short: "Execute a PHP payload on a site",
	Long: `Execute a block of PHP code, or a local .php file, on the site.
The payload is written to a temporary file under the WordPress root,
run with 'wp eval-file', and removed afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		scriptArgs, _ := cmd.Flags().GetStringSlice("arg")
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode := phpexec.Mode(modeFlag)
		switch mode {
		case phpexec.ModeAuto, phpexec.ModeFile, phpexec.ModeCode:
		default:
			return fmt.Errorf("invalid mode %q", modeFlag)
		}

		ctx, cancel := signalContext()
		defer cancel()

		res := a.runner.RunScript(ctx, args[0], args[1], phpexec.Options{Mode: mode, Args: scriptArgs})
		return printScriptResult(res)
	},
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List and run installed skills",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		skills, err := skill.Discover(skillsDir)
		if err != nil {
			return err
		}
		if len(skills) == 0 {
			fmt.Println("No skills installed.")
			return nil
		}
		for _, sk := range skills {
			fmt.Printf("%s: %s\n", sk.Name, sk.Description)
			for _, script := range sk.Scripts {
				fmt.Printf("  %s\n", script)
			}
		}
		return nil
	},
}

var skillsRunCmd = &cobra.Command{
	Use:   "run <site> <skill> <script>",
	Short: "Run one skill script against a site",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		skills, err := skill.Discover(skillsDir)
		if err != nil {
			return err
		}
		var found *skill.Skill
		for i := range skills {
			if skills[i].Name == args[1] {
				found = &skills[i]
				break
			}
		}
		if found == nil {
			return fmt.Errorf("unknown skill %q", args[1])
		}

		scriptArgs, _ := cmd.Flags().GetStringSlice("arg")
		ctx, cancel := signalContext()
		defer cancel()

		sctx := skill.NewContext(args[0], a.exec, a.runner)
		res, err := sctx.RunSkillScript(ctx, *found, args[2], scriptArgs)
		if err != nil {
			return err
		}
		return printScriptResult(res)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [site...]",
	Short: "Probe SSH connectivity of all (or the named) sites",
	Long: `Open an SSH session to each site and run a trivial command. Probes
run concurrently; each is an independent single command, there is no
cross-site coordination.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ids := args
		if len(ids) == 0 {
			ids = a.registry.ListIDs()
		}

		ctx, cancel := signalContext()
		defer cancel()

		type status struct {
			id  string
			err error
		}
		var (
			mu       sync.Mutex
			statuses = make([]status, 0, len(ids))
		)

		g := new(errgroup.Group)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				res, err := a.exec.Run(ctx, id, "true")
				if err == nil && !res.Success() {
					err = fmt.Errorf("probe exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
				}
				mu.Lock()
				statuses = append(statuses, status{id: id, err: err})
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				return nil
			})
		}
		probeErr := g.Wait()

		mu.Lock()
		defer mu.Unlock()
		for _, st := range statuses {
			if st.err != nil {
				fmt.Printf("FAIL\t%s\t%v\n", st.id, st.err)
			} else {
				fmt.Printf("OK\t%s\n", st.id)
			}
		}
		return probeErr
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <site> <local> <remote>",
	Short: "Upload a local file to a site over SFTP",
	Long: `Upload a file. A relative remote path is placed under the site's
resolved WordPress root.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return a.exec.Upload(ctx, args[0], args[1], args[2])
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull <site> <remote> <local>",
	Short: "Download a file from a site over SFTP",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return a.exec.Download(ctx, args[0], args[1], args[2])
	},
}

func printResult(res sshexec.Result) error {
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	if !res.Success() {
		return fmt.Errorf("command exited %d", res.ExitCode)
	}
	return nil
}

func printScriptResult(res phpexec.ScriptResult) error {
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	if !res.Success() {
		return fmt.Errorf("%s", strings.TrimSpace(res.Error))
	}
	return nil
}
