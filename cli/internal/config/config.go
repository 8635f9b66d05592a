// Package config provides reviewloop configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .reviewloop/config.toml (relative to repo root)
//   - Global: XDG config dir, e.g. ~/.config/reviewloop/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - MAX_LOOPS (positive integer; non-positive or non-numeric is fatal),
//   - REVIEW_SCOPE, BASE_BRANCH, COMMIT_SHA,
//   - CUSTOM_INSTRUCTIONS, CUSTOM_INSTRUCTIONS_FILE,
//   - COMMIT_MESSAGE (template override), RULES_FILE,
//   - INCLUDE_UNTRACKED, AUTO_APPROVE_DELETIONS, NO_AI_SUMMARY
//     (1/true/yes/on = true, 0/false/no/off = false),
//   - AI_SUMMARY_MAX_BYTES (non-negative integer),
//   - FIX_PROMPT, AGENT_CMD.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"reviewloop/cli/internal/erruser"
)

// Config holds all reviewloop configuration. It is constructed once at
// startup and passed by reference; no component reads ambient state directly.
type Config struct {
	// MaxLoops bounds the review/fix iterations. Default 10.
	MaxLoops int `toml:"max_loops"`
	// Scope is the raw review scope identifier, resolved by the scope package.
	Scope string `toml:"scope"`
	// BaseBranch is required by the branch-diff scope.
	BaseBranch string `toml:"base_branch"`
	// CommitSHA is required by the single-commit scope.
	CommitSHA string `toml:"commit_sha"`
	// CustomInstructions and CustomInstructionsFile feed the custom scope.
	CustomInstructions     string `toml:"custom_instructions"`
	CustomInstructionsFile string `toml:"custom_instructions_file"`
	// CommitMessage overrides the commit message template when non-empty.
	CommitMessage string `toml:"commit_message"`
	// RulesFile is the optional rules document consulted for the template.
	RulesFile string `toml:"rules_file"`
	// IncludeUntracked stages untracked files too (git add -A vs -u).
	IncludeUntracked bool `toml:"include_untracked"`
	// AutoApproveDeletions accepts agent file deletions without prompting.
	AutoApproveDeletions bool `toml:"auto_approve_deletions"`
	// NoAISummary disables the agent summary call for commit messages.
	NoAISummary bool `toml:"no_ai_summary"`
	// SummaryMaxBytes caps the staged diff size sent to the summary call;
	// larger diffs use the deterministic fallback. Default 65536.
	SummaryMaxBytes int `toml:"summary_max_bytes"`
	// FixPrompt is the instruction passed to the agent's resume call.
	FixPrompt string `toml:"fix_prompt"`
	// AgentCmd is the agent binary; empty means the built-in default.
	AgentCmd string `toml:"agent_cmd"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value". Applied last (highest precedence).
type Overrides struct {
	MaxLoops               *int
	Scope                  *string
	BaseBranch             *string
	CommitSHA              *string
	CustomInstructions     *string
	CustomInstructionsFile *string
	CommitMessage          *string
	RulesFile              *string
	IncludeUntracked       *bool
	AutoApproveDeletions   *bool
	NoAISummary            *bool
	SummaryMaxBytes        *int
	FixPrompt              *string
	AgentCmd               *string
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot is the repository root; if set, repo config is RepoRoot/.reviewloop/config.toml.
	RepoRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultMaxLoops        = 10
	_defaultSummaryMaxBytes = 64 * 1024
	_defaultFixPrompt       = "Fix all issues identified in this review. Keep changes minimal and do not touch unrelated code."
)

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		MaxLoops:        _defaultMaxLoops,
		SummaryMaxBytes: _defaultSummaryMaxBytes,
		FixPrompt:       _defaultFixPrompt,
	}
}

// Load loads configuration with precedence: defaults < global file < repo
// file < env < overrides. Missing config files are ignored. Invalid TOML or
// invalid env values return an error. MaxLoops is validated last so a bad
// value from any layer is caught.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "reviewloop", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		repoPath := filepath.Join(opts.RepoRoot, ".reviewloop", "config.toml")
		if err := mergeFile(&cfg, repoPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)

	if cfg.MaxLoops <= 0 {
		return nil, erruser.New("MAX_LOOPS must be a positive integer.", nil)
	}
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present and non-zero in the file. Missing file is skipped (no error).
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		MaxLoops               *int    `toml:"max_loops"`
		Scope                  *string `toml:"scope"`
		BaseBranch             *string `toml:"base_branch"`
		CommitSHA              *string `toml:"commit_sha"`
		CustomInstructions     *string `toml:"custom_instructions"`
		CustomInstructionsFile *string `toml:"custom_instructions_file"`
		CommitMessage          *string `toml:"commit_message"`
		RulesFile              *string `toml:"rules_file"`
		IncludeUntracked       *bool   `toml:"include_untracked"`
		AutoApproveDeletions   *bool   `toml:"auto_approve_deletions"`
		NoAISummary            *bool   `toml:"no_ai_summary"`
		SummaryMaxBytes        *int    `toml:"summary_max_bytes"`
		FixPrompt              *string `toml:"fix_prompt"`
		AgentCmd               *string `toml:"agent_cmd"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New("Invalid configuration in "+path+".", err)
	}
	if file.MaxLoops != nil {
		cfg.MaxLoops = *file.MaxLoops
	}
	if file.Scope != nil && *file.Scope != "" {
		cfg.Scope = *file.Scope
	}
	if file.BaseBranch != nil && *file.BaseBranch != "" {
		cfg.BaseBranch = *file.BaseBranch
	}
	if file.CommitSHA != nil && *file.CommitSHA != "" {
		cfg.CommitSHA = *file.CommitSHA
	}
	if file.CustomInstructions != nil && *file.CustomInstructions != "" {
		cfg.CustomInstructions = *file.CustomInstructions
	}
	if file.CustomInstructionsFile != nil && *file.CustomInstructionsFile != "" {
		cfg.CustomInstructionsFile = *file.CustomInstructionsFile
	}
	if file.CommitMessage != nil && *file.CommitMessage != "" {
		cfg.CommitMessage = *file.CommitMessage
	}
	if file.RulesFile != nil && *file.RulesFile != "" {
		cfg.RulesFile = *file.RulesFile
	}
	if file.IncludeUntracked != nil {
		cfg.IncludeUntracked = *file.IncludeUntracked
	}
	if file.AutoApproveDeletions != nil {
		cfg.AutoApproveDeletions = *file.AutoApproveDeletions
	}
	if file.NoAISummary != nil {
		cfg.NoAISummary = *file.NoAISummary
	}
	if file.SummaryMaxBytes != nil && *file.SummaryMaxBytes >= 0 {
		cfg.SummaryMaxBytes = *file.SummaryMaxBytes
	}
	if file.FixPrompt != nil && *file.FixPrompt != "" {
		cfg.FixPrompt = *file.FixPrompt
	}
	if file.AgentCmd != nil && *file.AgentCmd != "" {
		cfg.AgentCmd = *file.AgentCmd
	}
	return nil
}

// env key names for config
const (
	envMaxLoops               = "MAX_LOOPS"
	envScope                  = "REVIEW_SCOPE"
	envBaseBranch             = "BASE_BRANCH"
	envCommitSHA              = "COMMIT_SHA"
	envCustomInstructions     = "CUSTOM_INSTRUCTIONS"
	envCustomInstructionsFile = "CUSTOM_INSTRUCTIONS_FILE"
	envCommitMessage          = "COMMIT_MESSAGE"
	envRulesFile              = "RULES_FILE"
	envIncludeUntracked       = "INCLUDE_UNTRACKED"
	envAutoApproveDeletions   = "AUTO_APPROVE_DELETIONS"
	envNoAISummary            = "NO_AI_SUMMARY"
	envSummaryMaxBytes        = "AI_SUMMARY_MAX_BYTES"
	envFixPrompt              = "FIX_PROMPT"
	envAgentCmd               = "AGENT_CMD"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		vals[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}
	if v, ok := vals[envMaxLoops]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return erruser.New("MAX_LOOPS must be a valid number.", err)
		}
		cfg.MaxLoops = n
	}
	if v, ok := vals[envScope]; ok && v != "" {
		cfg.Scope = v
	}
	if v, ok := vals[envBaseBranch]; ok && v != "" {
		cfg.BaseBranch = v
	}
	if v, ok := vals[envCommitSHA]; ok && v != "" {
		cfg.CommitSHA = v
	}
	if v, ok := vals[envCustomInstructions]; ok && v != "" {
		cfg.CustomInstructions = v
	}
	if v, ok := vals[envCustomInstructionsFile]; ok && v != "" {
		cfg.CustomInstructionsFile = v
	}
	if v, ok := vals[envCommitMessage]; ok && v != "" {
		cfg.CommitMessage = v
	}
	if v, ok := vals[envRulesFile]; ok && v != "" {
		cfg.RulesFile = v
	}
	if v, ok := vals[envIncludeUntracked]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("INCLUDE_UNTRACKED must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.IncludeUntracked = b
	}
	if v, ok := vals[envAutoApproveDeletions]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("AUTO_APPROVE_DELETIONS must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.AutoApproveDeletions = b
	}
	if v, ok := vals[envNoAISummary]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("NO_AI_SUMMARY must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.NoAISummary = b
	}
	if v, ok := vals[envSummaryMaxBytes]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return erruser.New("AI_SUMMARY_MAX_BYTES must be a valid number.", err)
		}
		if n < 0 {
			return erruser.New("AI_SUMMARY_MAX_BYTES must be non-negative.", nil)
		}
		cfg.SummaryMaxBytes = n
	}
	if v, ok := vals[envFixPrompt]; ok && v != "" {
		cfg.FixPrompt = v
	}
	if v, ok := vals[envAgentCmd]; ok && v != "" {
		cfg.AgentCmd = v
	}
	return nil
}

// parseBool parses common boolean env values: 1/true/yes/on = true,
// 0/false/no/off = false (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, erruser.New("invalid boolean "+s, nil)
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.MaxLoops != nil {
		cfg.MaxLoops = *o.MaxLoops
	}
	if o.Scope != nil {
		cfg.Scope = *o.Scope
	}
	if o.BaseBranch != nil {
		cfg.BaseBranch = *o.BaseBranch
	}
	if o.CommitSHA != nil {
		cfg.CommitSHA = *o.CommitSHA
	}
	if o.CustomInstructions != nil {
		cfg.CustomInstructions = *o.CustomInstructions
	}
	if o.CustomInstructionsFile != nil {
		cfg.CustomInstructionsFile = *o.CustomInstructionsFile
	}
	if o.CommitMessage != nil {
		cfg.CommitMessage = *o.CommitMessage
	}
	if o.RulesFile != nil {
		cfg.RulesFile = *o.RulesFile
	}
	if o.IncludeUntracked != nil {
		cfg.IncludeUntracked = *o.IncludeUntracked
	}
	if o.AutoApproveDeletions != nil {
		cfg.AutoApproveDeletions = *o.AutoApproveDeletions
	}
	if o.NoAISummary != nil {
		cfg.NoAISummary = *o.NoAISummary
	}
	if o.SummaryMaxBytes != nil && *o.SummaryMaxBytes >= 0 {
		cfg.SummaryMaxBytes = *o.SummaryMaxBytes
	}
	if o.FixPrompt != nil && *o.FixPrompt != "" {
		cfg.FixPrompt = *o.FixPrompt
	}
	if o.AgentCmd != nil && *o.AgentCmd != "" {
		cfg.AgentCmd = *o.AgentCmd
	}
}
