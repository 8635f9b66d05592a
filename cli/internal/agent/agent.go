// Package agent drives the external review/fix agent: a review invocation
// that yields a session handle, a resume invocation that applies fixes in
// that session, and a summarize invocation used for commit messages. The
// agent's reasoning is opaque; only its command-line contract is modeled.
package agent

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"reviewloop/cli/internal/erruser"
	"reviewloop/cli/internal/scope"
	"reviewloop/cli/internal/trace"
)

// DefaultCommand is the agent binary invoked when none is configured.
const DefaultCommand = "cursor-agent"

// ErrNoSession indicates ApplyFix was called without a valid session. This is
// a programming-contract violation in the caller, checked defensively.
var ErrNoSession = errors.New("no agent session; review must succeed before applying fixes")

// Session is the opaque handle returned by a review invocation and consumed
// by exactly one resume invocation.
type Session struct {
	ID string
}

// CaptureError reports that no valid session handle could be extracted from
// the agent's output. Output carries the full captured stream for diagnosis.
type CaptureError struct {
	Reason string
	Output string
}

// Error returns the capture failure reason.
func (e *CaptureError) Error() string {
	return "could not capture agent session: " + e.Reason
}

// Client invokes the agent binary. Dir is the working directory for every
// invocation (the repository root). Echo, when non-nil, receives the agent's
// combined output live in addition to the capture buffer.
type Client struct {
	Command string
	Dir     string
	Echo    io.Writer
	Trace   *trace.Tracer
}

// NewClient returns a Client for the given command and repository root.
// An empty command falls back to DefaultCommand.
func NewClient(command, repoRoot string) *Client {
	if command == "" {
		command = DefaultCommand
	}
	return &Client{Command: command, Dir: repoRoot}
}

// Review invokes the agent's review flow non-interactively. The scope's menu
// selection and optional parameter are supplied on the agent's stdin rather
// than as arguments, so arbitrary instruction text needs no shell escaping.
// Combined output is captured to a temporary buffer, released on every exit
// path, and scanned for the session handle.
func (c *Client) Review(ctx context.Context, sc scope.ReviewScope) (Session, error) {
	input := sc.Selection() + "\n"
	if param, ok := sc.ParameterLine(); ok {
		input += param + "\n"
	}

	capture, err := os.CreateTemp("", "reviewloop-agent-*.log")
	if err != nil {
		return Session{}, erruser.New("Could not create agent capture buffer.", err)
	}
	defer func() {
		capture.Close()
		os.Remove(capture.Name())
	}()

	var sink io.Writer = capture
	if c.Echo != nil {
		sink = io.MultiWriter(capture, c.Echo)
	}

	cmd := exec.CommandContext(ctx, c.Command, "review")
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = sink
	cmd.Stderr = sink
	if c.Trace.Enabled() {
		c.Trace.Section("Agent review")
		c.Trace.Printf("command=%s selection=%s\n", c.Command, sc.Selection())
	}
	runErr := cmd.Run()

	output, readErr := readCapture(capture)
	if readErr != nil {
		return Session{}, erruser.New("Could not read agent output.", readErr)
	}
	if runErr != nil {
		return Session{}, erruser.New("Agent review invocation failed.", wrapCaptured(runErr, output))
	}

	id, err := ExtractSessionID(output)
	if err != nil {
		return Session{}, err
	}
	if c.Trace.Enabled() {
		c.Trace.Printf("session=%s\n", id)
	}
	return Session{ID: id}, nil
}

// ApplyFix resumes the review session with a fix instruction. The handle and
// instruction are positional arguments per the agent's resume contract.
// Fails if the session is empty; not retried on failure.
func (c *Client) ApplyFix(ctx context.Context, s Session, prompt string) error {
	if s.ID == "" {
		return ErrNoSession
	}
	cmd := exec.CommandContext(ctx, c.Command, "resume", s.ID, prompt)
	cmd.Dir = c.Dir
	if c.Echo != nil {
		cmd.Stdout = c.Echo
		cmd.Stderr = c.Echo
	}
	if c.Trace.Enabled() {
		c.Trace.Section("Agent fix")
		c.Trace.Printf("session=%s\n", s.ID)
	}
	if err := cmd.Run(); err != nil {
		return erruser.New("Agent fix invocation failed.", err)
	}
	return nil
}

// Summarize asks the agent for a one-line summary of the given diff, piped on
// stdin. Returns the trimmed first line of the agent's stdout. Errors and
// empty responses are for the caller to recover from (fallback summary).
func (c *Client) Summarize(ctx context.Context, diff string) (string, error) {
	cmd := exec.CommandContext(ctx, c.Command, "summarize")
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(diff)
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Agent summarize invocation failed.", err)
	}
	text := strings.TrimSpace(string(out))
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text, nil
}

// readCapture rewinds the capture file and returns its full contents.
func readCapture(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// wrapCaptured attaches trimmed captured output to err for the Details line.
func wrapCaptured(err error, output string) error {
	output = strings.TrimSpace(output)
	if output == "" {
		return err
	}
	return erruser.New(output, err)
}
