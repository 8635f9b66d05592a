// Package loop implements the review-then-fix control loop: snapshot the
// working tree, drive the agent's review and fix steps, detect whether
// anything actually changed, reconcile deletions, and commit, up to a
// bounded number of iterations.
//
// Iterations are strictly sequential and the loop assumes it is the sole
// writer to the working tree for the duration of a run. Agent calls block
// with no timeout; cancellation is the operator's job (ctx or signal).
package loop

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"reviewloop/cli/internal/agent"
	"reviewloop/cli/internal/commitmsg"
	"reviewloop/cli/internal/deletions"
	"reviewloop/cli/internal/erruser"
	"reviewloop/cli/internal/git"
	"reviewloop/cli/internal/scope"
	"reviewloop/cli/internal/trace"
	"reviewloop/cli/internal/ui"
)

// State is the terminal state of a run. All three are success exits.
type State string

const (
	// StateConverged means the agent produced no further detectable changes.
	StateConverged State = "converged"
	// StateLimitReached means the iteration bound was hit while the agent was
	// still making changes; the last iteration's changes are committed.
	StateLimitReached State = "limit-reached"
	// StateUncommittedHalt means the uncommitted-changes scope ran its single
	// inspect-only pass; nothing is committed.
	StateUncommittedHalt State = "uncommitted-halt"
)

// ErrDirtyWorktree indicates the working tree has uncommitted changes and the
// selected scope requires a clean tree.
var ErrDirtyWorktree = errors.New("working tree has uncommitted changes; commit or stash before starting")

// Options configures Run. RepoRoot, Scope, Agent (unless DryRun), MaxLoops,
// FixPrompt, and CommitTemplate are required.
type Options struct {
	RepoRoot string
	Scope    scope.ReviewScope
	Agent    *agent.Client
	// MaxLoops bounds the iterations; must be positive.
	MaxLoops int
	// IncludeUntracked stages untracked files too (git add -A vs -u).
	IncludeUntracked bool
	// AutoApproveDeletions accepts agent deletions without prompting.
	AutoApproveDeletions bool
	// NoAISummary disables the agent summary call; the deterministic
	// file-name fallback is used instead.
	NoAISummary bool
	// SummaryMaxBytes caps the staged diff sent to the summary call.
	SummaryMaxBytes int
	// FixPrompt is the instruction for the agent's resume step.
	FixPrompt string
	// CommitTemplate is the resolved commit message template.
	CommitTemplate string
	// DryRun skips agent invocations entirely; the loop converges on the
	// unchanged snapshot. Used to exercise the wiring in CI.
	DryRun bool
	// Env is the environment for CI detection; nil means os.Environ().
	Env []string
	// PromptIn is the deletion prompt source; nil means os.Stdin.
	PromptIn *os.File
	// Out receives progress lines; nil means os.Stderr.
	Out   io.Writer
	Trace *trace.Tracer
}

// Result reports how the run ended.
type Result struct {
	State State
	// Iterations is the number of the iteration the run ended on.
	Iterations int
	// CommitsMade is the number of commits the loop created.
	CommitsMade int
}

// Run executes the loop. The clean-tree precondition applies to every scope
// except uncommitted-changes, which intentionally reviews a dirty tree.
// Agent failures and snapshot failures abort the run; no partial commit is
// made for a failed iteration.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.RepoRoot == "" {
		return Result{}, erruser.New("Run failed: repository root is required.", nil)
	}
	if opts.MaxLoops <= 0 {
		return Result{}, erruser.New("Run failed: iteration limit must be positive.", nil)
	}
	if opts.Agent == nil && !opts.DryRun {
		return Result{}, erruser.New("Run failed: agent client is required.", nil)
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	// The single-commit scope's identifier must resolve before any agent
	// call; a bad SHA is a configuration error, not an iteration failure.
	if opts.Scope.Kind == scope.KindCommit {
		if _, err := git.RevParse(opts.RepoRoot, opts.Scope.SHA); err != nil {
			return Result{}, err
		}
	}

	uncommittedMode := opts.Scope.Kind == scope.KindUncommitted
	if !uncommittedMode {
		clean, err := git.IsClean(opts.RepoRoot)
		if err != nil {
			return Result{}, err
		}
		if !clean {
			return Result{}, ErrDirtyWorktree
		}
	}

	commits := 0
	for i := 1; i <= opts.MaxLoops; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Iterations: i - 1, CommitsMade: commits}, erruser.New("Run cancelled.", err)
		}
		ui.Noticef(out, "Iteration %d/%d: reviewing %s", i, opts.MaxLoops, opts.Scope)
		if opts.Trace.Enabled() {
			opts.Trace.Section("Iteration")
			opts.Trace.Printf("iteration=%d max=%d scope=%s\n", i, opts.MaxLoops, opts.Scope)
		}

		before, err := git.Snapshot(opts.RepoRoot)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		deletedBefore, err := git.DeletedFiles(opts.RepoRoot)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}

		if opts.DryRun {
			ui.Noticef(out, "Dry-run: skipping agent invocation.")
			ui.Successf(out, "No changes detected; converged after %d iteration(s).", i)
			return Result{State: StateConverged, Iterations: i, CommitsMade: commits}, nil
		}

		session, err := opts.Agent.Review(ctx, opts.Scope)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		if err := opts.Agent.ApplyFix(ctx, session, opts.FixPrompt); err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}

		after, err := git.Snapshot(opts.RepoRoot)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		if opts.Trace.Enabled() {
			opts.Trace.Printf("snapshot before=%s after=%s\n", before, after)
		}
		if before == after {
			ui.Successf(out, "No changes detected; converged after %d iteration(s).", i)
			return Result{State: StateConverged, Iterations: i, CommitsMade: commits}, nil
		}

		deletedAfter, err := git.DeletedFiles(opts.RepoRoot)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		newly := deletions.NewlyDeleted(deletedBefore, deletedAfter)
		if _, err := deletions.Reconcile(opts.RepoRoot, newly, deletions.Policy{
			AutoApprove: opts.AutoApproveDeletions,
			Env:         opts.Env,
			Stdin:       opts.PromptIn,
			Out:         out,
		}); err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}

		if uncommittedMode {
			ui.Noticef(out, "Uncommitted-review mode: changes left in the working tree for manual inspection.")
			return Result{State: StateUncommittedHalt, Iterations: i, CommitsMade: commits}, nil
		}

		if err := git.Stage(opts.RepoRoot, opts.IncludeUntracked); err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		staged, err := git.HasStagedChanges(opts.RepoRoot)
		if err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		if !staged {
			// All changes were untracked and untracked staging is off; a
			// legitimate convergence, not an error.
			ui.Noticef(out, "Nothing staged after agent changes; treating as converged.")
			return Result{State: StateConverged, Iterations: i, CommitsMade: commits}, nil
		}

		var summary string
		if commitmsg.HasSummaryPlaceholder(opts.CommitTemplate) {
			summary = resolveSummary(ctx, opts)
		}
		message := commitmsg.Render(opts.CommitTemplate, i, summary)
		if err := git.Commit(opts.RepoRoot, message); err != nil {
			return Result{Iterations: i, CommitsMade: commits}, err
		}
		commits++
		ui.Successf(out, "Committed iteration %d changes.", i)
	}

	ui.Warnf(out, "Iteration limit reached with the agent still making changes; manual review recommended.")
	return Result{State: StateLimitReached, Iterations: opts.MaxLoops, CommitsMade: commits}, nil
}

// resolveSummary produces the commit summary for the staged changes: the
// agent summary when enabled, the diff fits the byte threshold, and the call
// returns non-empty text; otherwise the deterministic file-name fallback.
// Never fails; summary problems are always recovered locally.
func resolveSummary(ctx context.Context, opts Options) string {
	if !opts.NoAISummary && opts.Agent != nil {
		diff, err := git.StagedDiff(opts.RepoRoot)
		if err == nil && len(diff) > 0 && len(diff) <= opts.SummaryMaxBytes {
			if s, err := opts.Agent.Summarize(ctx, diff); err == nil && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	files, err := git.StagedFiles(opts.RepoRoot)
	if err != nil {
		return commitmsg.FallbackSummary(nil)
	}
	return commitmsg.FallbackSummary(files)
}
