// Working-tree fingerprinting for convergence detection.

package git

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os/exec"

	"reviewloop/cli/internal/erruser"
)

// noCommitSentinel stands in for the content diff when the repository has no
// commits yet, so Snapshot never fails on a fresh repository.
const noCommitSentinel = "reviewloop:no-commit\n"

// Snapshot returns a content-addressed fingerprint of the working tree and
// index relative to the last commit: the SHA-256 of "git status --porcelain"
// output (which covers modified, deleted, and untracked paths) concatenated
// with the byte-exact "git diff HEAD" output. Two snapshots are equal iff the
// tree state is byte-identical; whitespace and ordering differences count.
// On a repository with no commits the diff segment is a fixed sentinel.
func Snapshot(repoRoot string) (string, error) {
	statusCmd := exec.Command("git", "status", "--porcelain")
	statusCmd.Dir = repoRoot
	statusCmd.Env = minimalEnv()
	status, err := statusCmd.Output()
	if err != nil {
		return "", erruser.New("Could not read working tree status.", err)
	}

	h := sha256.New()
	h.Write(status)

	hasCommits, err := HasCommits(repoRoot)
	if err != nil {
		return "", err
	}
	if hasCommits {
		diffCmd := exec.Command("git", "diff", "HEAD")
		diffCmd.Dir = repoRoot
		diffCmd.Env = minimalEnv()
		diff, err := diffCmd.Output()
		if err != nil {
			return "", erruser.New("Could not diff working tree against last commit.", err)
		}
		h.Write(diff)
	} else {
		io.WriteString(h, noCommitSentinel)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
