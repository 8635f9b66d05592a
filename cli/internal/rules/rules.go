// Package rules reads the optional project rules document (a markdown file)
// and extracts the commit message template from it. The template can live in
// a YAML front matter block or on any "commit-template:" line in the body;
// the front matter wins, otherwise the first matching body line does.
package rules

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"reviewloop/cli/internal/erruser"
)

// templateKey is matched case-insensitively at the start of a body line.
const templateKey = "commit-template:"

// frontMatter is the subset of rules-document front matter reviewloop reads.
type frontMatter struct {
	CommitTemplate string `yaml:"commit-template"`
}

// CommitTemplate returns the commit message template from the rules document
// at path, and whether one was found. A read failure (including a missing
// file) is returned as an error so the caller can warn and fall back; it is
// never fatal to the run.
func CommitTemplate(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, erruser.New("Could not read rules document.", err)
	}
	content := string(data)

	if fm, body, ok := splitFrontMatter(content); ok {
		var parsed frontMatter
		if err := yaml.Unmarshal([]byte(fm), &parsed); err == nil {
			if t := strings.TrimSpace(parsed.CommitTemplate); t != "" {
				return t, true, nil
			}
		}
		content = body
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < len(templateKey) {
			continue
		}
		if strings.EqualFold(trimmed[:len(templateKey)], templateKey) {
			if t := strings.TrimSpace(trimmed[len(templateKey):]); t != "" {
				return t, true, nil
			}
		}
	}
	return "", false, nil
}

// splitFrontMatter splits "---\n...\n---\n" front matter from the body.
// Returns ok=false when the document has no front matter block.
func splitFrontMatter(content string) (fm, body string, ok bool) {
	if !strings.HasPrefix(content, "---") {
		return "", "", false
	}
	rest := strings.TrimPrefix(content, "---")
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", "", false
	}
	fm = rest[:end]
	body = rest[end+len("\n---"):]
	return fm, body, true
}
