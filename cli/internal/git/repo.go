// Package git provides the repository operations the loop relies on:
// discovery, status, fingerprinting, staging, and commits. All operations
// shell out to the git binary with a minimal environment.
package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"reviewloop/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the git repository root containing dir.
// Runs "git rev-parse --show-toplevel" with Dir=dir. Returns error if dir is
// not inside a git repository.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("This directory is not inside a Git repository.", err)
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}

// IsClean reports whether the working tree at repoRoot has no uncommitted or
// untracked changes. Runs "git status --porcelain"; true only if output is
// empty. Returns error only on command failure.
func IsClean(repoRoot string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return false, erruser.New("Could not check working tree status.", err)
	}
	return len(strings.TrimSpace(string(out))) == 0, nil
}

// HasCommits reports whether the repository has at least one commit.
// A failing "git rev-parse --verify HEAD" with a normal exit code means an
// unborn branch (no commits); any other failure is returned as an error.
func HasCommits(repoRoot string) (bool, error) {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", "HEAD")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return false, nil
	}
	return false, erruser.New("Could not inspect repository history.", err)
}

// RevParse resolves ref to a full SHA in the repository at repoRoot.
// Returns the 40-character commit SHA, or error if ref is invalid.
func RevParse(repoRoot, ref string) (string, error) {
	cmd := exec.Command("git", "rev-parse", ref)
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Invalid ref or commit.", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat", // prevent pager; subprocess output is captured
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}
