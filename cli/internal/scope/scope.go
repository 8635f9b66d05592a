// Package scope resolves the user-chosen review scope identifier to a typed
// ReviewScope: what portion of the repository the agent is asked to review
// and which parameter, if any, it needs.
package scope

import (
	"os"
	"strings"

	"reviewloop/cli/internal/erruser"
)

// Kind identifies the review scope variant.
type Kind int

const (
	// KindDefault reviews the whole codebase.
	KindDefault Kind = iota
	// KindBranchDiff reviews the diff of the current branch against a base ref.
	KindBranchDiff
	// KindUncommitted reviews uncommitted working-tree changes. This scope
	// skips the clean-tree precondition and never auto-commits.
	KindUncommitted
	// KindCommit reviews a single commit.
	KindCommit
	// KindCustom reviews per free-text instructions.
	KindCustom
)

// ReviewScope is the resolved scope for a run. Constructed once from user
// configuration; immutable afterwards.
type ReviewScope struct {
	Kind Kind
	// Base is the base ref for KindBranchDiff.
	Base string
	// SHA is the commit identifier for KindCommit.
	SHA string
	// Instructions is the resolved instruction text for KindCustom.
	Instructions string
}

// Params carries the per-scope configuration needed to resolve parameters.
type Params struct {
	BaseBranch       string
	CommitSHA        string
	Instructions     string
	InstructionsFile string
}

// aliases maps normalized identifiers to scope kinds. Numeric ids mirror the
// agent's review menu; the English synonyms are accepted case-insensitively.
var aliases = map[string]Kind{
	"1": KindDefault, "default": KindDefault, "full": KindDefault,
	"all": KindDefault, "repo": KindDefault, "codebase": KindDefault,

	"2": KindBranchDiff, "branch": KindBranchDiff, "branch-diff": KindBranchDiff,
	"diff": KindBranchDiff, "pr": KindBranchDiff,

	"3": KindUncommitted, "uncommitted": KindUncommitted, "working": KindUncommitted,
	"wip": KindUncommitted, "local": KindUncommitted, "unstaged": KindUncommitted,

	"4": KindCommit, "commit": KindCommit, "single-commit": KindCommit,
	"sha": KindCommit, "last-commit": KindCommit,

	"custom": KindCustom, "instructions": KindCustom,
}

// Parse resolves raw to a ReviewScope. Matching is case-insensitive. An
// unknown non-empty identifier degrades to the default scope and returns a
// non-empty warning (never an error) so new agent-side scopes stay usable.
// An empty identifier is the default scope with no warning. Scopes with a
// required parameter fail with a configuration error when it is missing.
func Parse(raw string, p Params) (ReviewScope, string, error) {
	norm := strings.TrimSpace(strings.ToLower(raw))
	if norm == "" {
		return ReviewScope{Kind: KindDefault}, "", nil
	}
	kind, ok := aliases[norm]
	if !ok {
		return ReviewScope{Kind: KindDefault},
			"unknown review scope " + strings.TrimSpace(raw) + "; using default scope", nil
	}
	switch kind {
	case KindDefault:
		return ReviewScope{Kind: KindDefault}, "", nil
	case KindBranchDiff:
		if strings.TrimSpace(p.BaseBranch) == "" {
			return ReviewScope{}, "", erruser.New("Branch-diff scope requires a base branch (set BASE_BRANCH).", nil)
		}
		return ReviewScope{Kind: KindBranchDiff, Base: strings.TrimSpace(p.BaseBranch)}, "", nil
	case KindUncommitted:
		return ReviewScope{Kind: KindUncommitted}, "", nil
	case KindCommit:
		if strings.TrimSpace(p.CommitSHA) == "" {
			return ReviewScope{}, "", erruser.New("Single-commit scope requires a commit (set COMMIT_SHA).", nil)
		}
		return ReviewScope{Kind: KindCommit, SHA: strings.TrimSpace(p.CommitSHA)}, "", nil
	case KindCustom:
		text, err := resolveInstructions(p.Instructions, p.InstructionsFile)
		if err != nil {
			return ReviewScope{}, "", err
		}
		return ReviewScope{Kind: KindCustom, Instructions: text}, "", nil
	}
	return ReviewScope{Kind: KindDefault}, "", nil
}

// resolveInstructions joins inline text and file contents with a newline when
// both are present. Empty resolved text is a configuration error.
func resolveInstructions(inline, file string) (string, error) {
	inline = strings.TrimSpace(inline)
	var fromFile string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", erruser.New("Could not read custom instructions file.", err)
		}
		fromFile = strings.TrimSpace(string(data))
	}
	switch {
	case inline != "" && fromFile != "":
		return inline + "\n" + fromFile, nil
	case inline != "":
		return inline, nil
	case fromFile != "":
		return fromFile, nil
	}
	return "", erruser.New("Custom-instructions scope requires instruction text (set CUSTOM_INSTRUCTIONS or CUSTOM_INSTRUCTIONS_FILE).", nil)
}

// Selection returns the menu index piped to the agent as the first input line.
func (s ReviewScope) Selection() string {
	switch s.Kind {
	case KindBranchDiff:
		return "2"
	case KindUncommitted:
		return "3"
	case KindCommit:
		return "4"
	case KindCustom:
		return "5"
	default:
		return "1"
	}
}

// ParameterLine returns the parameter piped to the agent after the selection,
// and whether one exists for this scope.
func (s ReviewScope) ParameterLine() (string, bool) {
	switch s.Kind {
	case KindBranchDiff:
		return s.Base, true
	case KindCommit:
		return s.SHA, true
	case KindCustom:
		return s.Instructions, true
	default:
		return "", false
	}
}

// String returns a short human-readable description for progress output.
func (s ReviewScope) String() string {
	switch s.Kind {
	case KindBranchDiff:
		return "branch diff against " + s.Base
	case KindUncommitted:
		return "uncommitted changes"
	case KindCommit:
		return "commit " + s.SHA
	case KindCustom:
		return "custom instructions"
	default:
		return "full codebase"
	}
}
