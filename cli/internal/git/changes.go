// Staging, commit, and restore operations used by the fix loop.

package git

import (
	"os/exec"
	"strings"

	"reviewloop/cli/internal/erruser"
)

// DeletedFiles returns the paths of files that are tracked but missing from
// the working tree (git ls-files --deleted). Paths are repo-relative.
func DeletedFiles(repoRoot string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--deleted")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return nil, erruser.New("Could not list deleted files.", err)
	}
	return splitLines(string(out)), nil
}

// RestoreFromHead recovers path's content from the last commit, leaving it
// present in the working tree (git checkout HEAD -- path).
func RestoreFromHead(repoRoot, path string) error {
	cmd := exec.Command("git", "checkout", "HEAD", "--", path)
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return erruser.New("Could not restore "+path+" from the last commit.", wrapOutput(err, out))
	}
	return nil
}

// Stage stages changes for commit. With includeUntracked it stages everything
// (git add -A); otherwise only tracked modifications and deletions (git add -u).
func Stage(repoRoot string, includeUntracked bool) error {
	mode := "-u"
	if includeUntracked {
		mode = "-A"
	}
	cmd := exec.Command("git", "add", mode)
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return erruser.New("Could not stage changes.", wrapOutput(err, out))
	}
	return nil
}

// HasStagedChanges reports whether anything is staged for commit. Reads
// "git status --porcelain" and checks the index column, which also works on a
// repository with no commits yet.
func HasStagedChanges(repoRoot string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return false, erruser.New("Could not check staged changes.", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 2 {
			continue
		}
		if line[0] != ' ' && line[0] != '?' {
			return true, nil
		}
	}
	return false, nil
}

// StagedDiff returns the unified diff of staged content (git diff --cached).
func StagedDiff(repoRoot string) (string, error) {
	cmd := exec.Command("git", "diff", "--cached")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Could not read staged diff.", err)
	}
	return string(out), nil
}

// StagedFiles returns the repo-relative paths of staged files.
func StagedFiles(repoRoot string) ([]string, error) {
	cmd := exec.Command("git", "diff", "--cached", "--name-only")
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return nil, erruser.New("Could not list staged files.", err)
	}
	return splitLines(string(out)), nil
}

// Commit creates a commit from the staged content with the given message.
func Commit(repoRoot, message string) error {
	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = repoRoot
	cmd.Env = minimalEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return erruser.New("Could not create commit.", wrapOutput(err, out))
	}
	return nil
}

// splitLines splits command output into non-empty trimmed lines.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// wrapOutput attaches trimmed combined output to err for the Details line.
func wrapOutput(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return err
	}
	return erruser.New(msg, err)
}
