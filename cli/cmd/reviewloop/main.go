package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"reviewloop/cli/internal/agent"
	"reviewloop/cli/internal/commitmsg"
	"reviewloop/cli/internal/config"
	"reviewloop/cli/internal/erruser"
	"reviewloop/cli/internal/git"
	"reviewloop/cli/internal/loop"
	"reviewloop/cli/internal/scope"
	"reviewloop/cli/internal/trace"
	"reviewloop/cli/internal/ui"
	"reviewloop/cli/internal/version"
)

// errExit is an error that carries an exit code for the CLI. Use errors.As to detect it.
type errExit int

func (e errExit) Error() string {
	return "exit " + strconv.Itoa(int(e))
}

func main() {
	os.Exit(Run())
}

// Run is the entry point for the CLI. It is exported for testing.
func Run() int {
	return runCLI(os.Args[1:])
}

func runCLI(args []string) int {
	// A .env in the working directory feeds the same variables the real
	// environment does; real environment wins.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "reviewloop",
		Short:   "Iterative agent-driven review/fix loop for git repositories",
		Version: version.String(),
	}
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		var exitErr errExit
		if errors.As(err, &exitErr) {
			return int(exitErr)
		}
		ui.Errorf(os.Stderr, "%v", err)
		if u := errors.Unwrap(err); u != nil {
			fmt.Fprintf(os.Stderr, "Details: %v\n", u)
		}
		return 1
	}
	return 0
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the review/fix loop until convergence or the iteration limit",
		RunE:  runRun,
	}
	cmd.Flags().Int("max-loops", 0, "Maximum review/fix iterations (0 = use config)")
	cmd.Flags().String("scope", "", "Review scope: default, branch, uncommitted, commit, or custom")
	cmd.Flags().String("base", "", "Base branch for the branch-diff scope")
	cmd.Flags().String("commit", "", "Commit SHA for the single-commit scope")
	cmd.Flags().String("instructions", "", "Inline instruction text for the custom scope")
	cmd.Flags().String("instructions-file", "", "File with instruction text for the custom scope")
	cmd.Flags().String("message", "", "Commit message template (%d = iteration, %s = summary)")
	cmd.Flags().String("rules-file", "", "Rules document consulted for the commit template")
	cmd.Flags().Bool("include-untracked", false, "Stage untracked files too")
	cmd.Flags().Bool("auto-approve-deletions", false, "Accept agent file deletions without prompting")
	cmd.Flags().Bool("no-ai-summary", false, "Skip the agent summary call; summarize by file names")
	cmd.Flags().Int("summary-max-bytes", -1, "Max staged-diff bytes sent to the summary call (-1 = use config)")
	cmd.Flags().String("fix-prompt", "", "Instruction for the agent's fix step")
	cmd.Flags().String("agent", "", "Agent binary to invoke")
	cmd.Flags().Bool("dry-run", false, "Skip agent invocations; exercise the loop wiring only")
	cmd.Flags().Bool("trace", false, "Print internal steps to stderr (snapshots, agent I/O)")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress and agent output echo")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	repoRoot, err := git.RepoRoot(cwd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	traceOn, _ := cmd.Flags().GetBool("trace")
	var tracer *trace.Tracer
	if traceOn {
		tracer = trace.New(os.Stderr)
	}
	var out io.Writer = os.Stderr
	if quiet {
		out = io.Discard
	}

	sc, warning, err := scope.Parse(cfg.Scope, scope.Params{
		BaseBranch:       cfg.BaseBranch,
		CommitSHA:        cfg.CommitSHA,
		Instructions:     cfg.CustomInstructions,
		InstructionsFile: cfg.CustomInstructionsFile,
	})
	if err != nil {
		return err
	}
	if warning != "" {
		ui.Warnf(out, "%s", warning)
	}

	client := agent.NewClient(cfg.AgentCmd, repoRoot)
	client.Trace = tracer
	if !quiet {
		client.Echo = os.Stderr
	}
	if !dryRun {
		if _, err := exec.LookPath(client.Command); err != nil {
			fmt.Fprintf(os.Stderr, "Agent binary %q not found on PATH. Install it or set AGENT_CMD.\n", client.Command)
			return errExit(2)
		}
	}

	template := commitmsg.ResolveTemplate(cfg.CommitMessage, rulesPath(repoRoot, cfg.RulesFile), out)

	result, err := loop.Run(cmd.Context(), loop.Options{
		RepoRoot:             repoRoot,
		Scope:                sc,
		Agent:                client,
		MaxLoops:             cfg.MaxLoops,
		IncludeUntracked:     cfg.IncludeUntracked,
		AutoApproveDeletions: cfg.AutoApproveDeletions,
		NoAISummary:          cfg.NoAISummary,
		SummaryMaxBytes:      cfg.SummaryMaxBytes,
		FixPrompt:            cfg.FixPrompt,
		CommitTemplate:       template,
		DryRun:               dryRun,
		Out:                  out,
		Trace:                tracer,
	})
	if err != nil {
		if errors.Is(err, loop.ErrDirtyWorktree) {
			fmt.Fprintln(os.Stderr, "Hint: Commit or stash your changes, or use --scope uncommitted to review them.")
			return err
		}
		var capErr *agent.CaptureError
		if errors.As(err, &capErr) {
			fmt.Fprintln(os.Stderr, capErr.Error())
			if capErr.Output != "" {
				fmt.Fprintln(os.Stderr, "Agent output:")
				fmt.Fprintln(os.Stderr, capErr.Output)
			}
			return errExit(2)
		}
		return err
	}

	fmt.Fprintf(os.Stdout, "state: %s\n", result.State)
	fmt.Fprintf(os.Stdout, "iterations: %d\n", result.Iterations)
	fmt.Fprintf(os.Stdout, "commits: %d\n", result.CommitsMade)
	return nil
}

// rulesPath resolves a relative rules file against the repo root so the
// command works from subdirectories. Empty stays empty (no rules document).
func rulesPath(repoRoot, path string) string {
	if path == "" || repoRoot == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// overridesFromFlags returns config overrides for every run flag the user set.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{}
	changed := false
	if f := cmd.Flags().Lookup("max-loops"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("max-loops")
		o.MaxLoops = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("scope"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("scope")
		o.Scope = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("base"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("base")
		o.BaseBranch = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("commit"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("commit")
		o.CommitSHA = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("instructions"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("instructions")
		o.CustomInstructions = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("instructions-file"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("instructions-file")
		o.CustomInstructionsFile = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("message"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("message")
		o.CommitMessage = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("rules-file"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("rules-file")
		o.RulesFile = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("include-untracked"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("include-untracked")
		o.IncludeUntracked = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("auto-approve-deletions"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("auto-approve-deletions")
		o.AutoApproveDeletions = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("no-ai-summary"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("no-ai-summary")
		o.NoAISummary = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("summary-max-bytes"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("summary-max-bytes")
		if v >= 0 {
			o.SummaryMaxBytes = &v
			changed = true
		}
	}
	if f := cmd.Flags().Lookup("fix-prompt"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("fix-prompt")
		o.FixPrompt = &v
		changed = true
	}
	if f := cmd.Flags().Lookup("agent"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetString("agent")
		o.AgentCmd = &v
		changed = true
	}
	if !changed {
		return nil
	}
	return o
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify environment (git, agent binary, repository)",
		RunE:  runDoctor,
	}
	cmd.Flags().String("agent", "", "Agent binary to check")
	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(os.Stderr, "git not found on PATH.")
		return errExit(1)
	}
	fmt.Fprintln(os.Stdout, "git OK")

	cwd, err := os.Getwd()
	if err != nil {
		return erruser.New("Could not determine current directory.", err)
	}
	repoRoot := ""
	if r, e := git.RepoRoot(cwd); e == nil {
		repoRoot = r
		fmt.Fprintf(os.Stdout, "repository: %s\n", repoRoot)
	} else {
		fmt.Fprintln(os.Stderr, "Not inside a git repository.")
	}

	cfg, err := config.Load(config.LoadOptions{RepoRoot: repoRoot, Overrides: overridesFromFlags(cmd)})
	if err != nil {
		return err
	}
	agentCmd := cfg.AgentCmd
	if f := cmd.Flags().Lookup("agent"); f != nil && f.Changed {
		agentCmd, _ = cmd.Flags().GetString("agent")
	}
	if agentCmd == "" {
		agentCmd = agent.DefaultCommand
	}
	if _, err := exec.LookPath(agentCmd); err != nil {
		fmt.Fprintf(os.Stderr, "Agent binary %q not found on PATH. Install it or set AGENT_CMD.\n", agentCmd)
		return errExit(2)
	}
	fmt.Fprintf(os.Stdout, "agent: %s\n", agentCmd)
	return nil
}
