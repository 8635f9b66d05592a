// Package commitmsg derives the commit message for one loop iteration from a
// template and an optional change summary. Placeholder substitution is plain
// literal text replacement, never a format-string interpretation, so summary
// content containing "%" can never alter the substitution process.
package commitmsg

import (
	"io"
	"strconv"
	"strings"

	"reviewloop/cli/internal/rules"
	"reviewloop/cli/internal/ui"
)

// DefaultTemplate is used when neither an override nor a rules-document
// template is available. %d is the iteration number; %s the change summary.
const DefaultTemplate = "reviewloop: apply review fixes (iteration %d): %s"

// maxFallbackFiles caps how many file names the deterministic fallback
// summary lists before eliding the rest.
const maxFallbackFiles = 5

// ResolveTemplate picks the commit message template by precedence: explicit
// override, else the rules document at rulesPath, else DefaultTemplate.
// A configured-but-missing document or a document without the template key
// warns on warnOut and falls back; it never fails the run.
func ResolveTemplate(override, rulesPath string, warnOut io.Writer) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if rulesPath != "" {
		t, found, err := rules.CommitTemplate(rulesPath)
		if err != nil {
			ui.Warnf(warnOut, "could not read rules document %s; using default commit template", rulesPath)
		} else if !found {
			ui.Warnf(warnOut, "rules document %s has no commit-template; using default commit template", rulesPath)
		} else {
			return t
		}
	}
	return DefaultTemplate
}

// Render substitutes the template's placeholders: every literal "%d" becomes
// the decimal iteration number, then every literal "%s" becomes the sanitized
// summary. Iteration substitution runs first, so a summary containing "%d"
// appears verbatim in the output. A template without "%s" gets a non-empty
// summary appended after a space instead of dropping it.
func Render(template string, iteration int, summary string) string {
	msg := strings.ReplaceAll(template, "%d", strconv.Itoa(iteration))
	summary = SanitizeSummary(summary)
	if strings.Contains(msg, "%s") {
		return strings.ReplaceAll(msg, "%s", summary)
	}
	if summary != "" {
		return msg + " " + summary
	}
	return msg
}

// HasSummaryPlaceholder reports whether the template contains "%s". Used to
// skip the summary agent call when the template cannot use one.
func HasSummaryPlaceholder(template string) bool {
	return strings.Contains(template, "%s")
}

// SanitizeSummary collapses newlines and whitespace runs to single spaces and
// trims the result, making the summary safe for a single-line commit subject.
func SanitizeSummary(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FallbackSummary is the deterministic summary used when the agent summary is
// disabled, fails, or the diff is too large: the changed file names, capped.
func FallbackSummary(files []string) string {
	if len(files) == 0 {
		return "update files"
	}
	if len(files) > maxFallbackFiles {
		extra := len(files) - maxFallbackFiles
		return "update " + strings.Join(files[:maxFallbackFiles], ", ") + " and " + strconv.Itoa(extra) + " more"
	}
	return "update " + strings.Join(files, ", ")
}
