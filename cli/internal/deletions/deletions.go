// Package deletions reconciles files the agent deleted during one iteration:
// accept the deletions or restore the files from the last commit. The default
// in any unattended non-CI context is restore, so tracked files are never
// silently destroyed.
package deletions

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/x/term"

	"reviewloop/cli/internal/git"
	"reviewloop/cli/internal/ui"
)

// ciIndicators are environment variable names whose presence (non-empty)
// marks a CI environment.
var ciIndicators = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
	"CIRCLECI",
}

// Policy decides whether newly deleted files are accepted or restored.
// Env is a key=value slice; nil means os.Environ(). Stdin is the prompt
// source; nil means os.Stdin. Out receives notices and warnings.
type Policy struct {
	AutoApprove bool
	Env         []string
	Stdin       *os.File
	Out         io.Writer
}

// NewlyDeleted returns after − before as a sorted path list: the files that
// went missing during this iteration. Deletions are diffed per iteration, not
// cumulatively since run start.
func NewlyDeleted(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, p := range before {
		seen[p] = struct{}{}
	}
	var newly []string
	for _, p := range after {
		if _, ok := seen[p]; !ok {
			newly = append(newly, p)
		}
	}
	sort.Strings(newly)
	return newly
}

// Reconcile applies the deletion policy to the newly deleted paths and
// reports whether the deletions were accepted. When not accepted, every path
// is restored from the last commit, vetoing the deletion for this iteration
// while keeping all other changes. An empty path list is a no-op (accepted).
func Reconcile(repoRoot string, newly []string, p Policy) (accepted bool, err error) {
	if len(newly) == 0 {
		return true, nil
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}

	if p.AutoApprove {
		ui.Noticef(out, "Accepting %d deleted file(s) (auto-approve enabled): %s", len(newly), strings.Join(newly, ", "))
		return true, nil
	}
	if inCI(p.Env) {
		ui.Warnf(out, "CI environment detected; accepting %d deleted file(s) without review: %s", len(newly), strings.Join(newly, ", "))
		return true, nil
	}
	if ok, answered := promptAccept(p.Stdin, out, newly); answered {
		if ok {
			return true, nil
		}
	}

	for _, path := range newly {
		if err := git.RestoreFromHead(repoRoot, path); err != nil {
			return false, err
		}
	}
	ui.Noticef(out, "Restored %d deleted file(s) from the last commit.", len(newly))
	return false, nil
}

// inCI reports whether any recognized CI indicator is set and non-empty.
func inCI(env []string) bool {
	if env == nil {
		env = os.Environ()
	}
	vals := make(map[string]string, len(env))
	for _, e := range env {
		if i := strings.Index(e, "="); i > 0 {
			vals[e[:i]] = e[i+1:]
		}
	}
	for _, name := range ciIndicators {
		if strings.TrimSpace(vals[name]) != "" {
			return true
		}
	}
	return false
}

// promptAccept asks the user whether to keep the deletions when stdin is an
// interactive terminal. Returns answered=false when no terminal is available.
// Empty or unrecognized input defaults to "restore".
func promptAccept(stdin *os.File, out io.Writer, newly []string) (accept, answered bool) {
	if stdin == nil {
		stdin = os.Stdin
	}
	if !term.IsTerminal(stdin.Fd()) {
		return false, false
	}
	ui.Warnf(out, "The agent deleted %d tracked file(s):", len(newly))
	for _, p := range newly {
		ui.Noticef(out, "  %s", p)
	}
	io.WriteString(out, "Keep these deletions? [y/N]: ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil {
		return false, true
	}
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return true, true
	default:
		return false, true
	}
}
