package deletions

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.email", "test@reviewloop.local")
	run(t, dir, "git", "config", "user.name", "Test")
	writeFile(t, dir, "keep.txt", "keep\n")
	writeFile(t, dir, "gone.txt", "gone\n")
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "c1")
	return dir
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// nonTTY returns an open file that is never a terminal.
func nonTTY(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

// cleanEnv has no CI indicators set.
var cleanEnv = []string{"HOME=/nonexistent", "PATH=/usr/bin"}

func TestNewlyDeleted(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name          string
		before, after []string
		want          []string
	}{
		{"nothing deleted", nil, nil, nil},
		{"one new", nil, []string{"a.txt"}, []string{"a.txt"}},
		{"already deleted excluded", []string{"a.txt"}, []string{"a.txt", "b.txt"}, []string{"b.txt"}},
		{"sorted output", nil, []string{"z.txt", "a.txt"}, []string{"a.txt", "z.txt"}},
		{"restored between iterations", []string{"a.txt"}, nil, nil},
	}
	for _, c := range cases {
		got := NewlyDeleted(c.before, c.after)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: NewlyDeleted = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestReconcile_emptyIsAccepted(t *testing.T) {
	t.Parallel()
	accepted, err := Reconcile(t.TempDir(), nil, Policy{Env: cleanEnv, Stdin: nonTTY(t)})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !accepted {
		t.Error("empty deletion set should be accepted")
	}
}

func TestReconcile_autoApprove(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	if err := os.Remove(filepath.Join(repo, "gone.txt")); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	accepted, err := Reconcile(repo, []string{"gone.txt"}, Policy{
		AutoApprove: true,
		Env:         cleanEnv,
		Stdin:       nonTTY(t),
		Out:         &out,
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !accepted {
		t.Error("auto-approve should accept deletions")
	}
	if _, err := os.Stat(filepath.Join(repo, "gone.txt")); !os.IsNotExist(err) {
		t.Error("accepted deletion should leave the file deleted")
	}
}

func TestReconcile_ciAcceptsWithWarning(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	if err := os.Remove(filepath.Join(repo, "gone.txt")); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	env := append([]string{"CI=true"}, cleanEnv...)
	accepted, err := Reconcile(repo, []string{"gone.txt"}, Policy{
		Env:   env,
		Stdin: nonTTY(t),
		Out:   &out,
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !accepted {
		t.Error("CI environment should accept deletions")
	}
	if !strings.Contains(out.String(), "gone.txt") {
		t.Errorf("CI acceptance should name the deleted files, got %q", out.String())
	}
}

func TestReconcile_unattendedRestores(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	if err := os.Remove(filepath.Join(repo, "gone.txt")); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	accepted, err := Reconcile(repo, []string{"gone.txt"}, Policy{
		Env:   cleanEnv,
		Stdin: nonTTY(t),
		Out:   &out,
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if accepted {
		t.Error("unattended non-CI run should restore, not accept")
	}
	data, err := os.ReadFile(filepath.Join(repo, "gone.txt"))
	if err != nil {
		t.Fatalf("file should be restored: %v", err)
	}
	if string(data) != "gone\n" {
		t.Errorf("restored content = %q, want %q", data, "gone\n")
	}
}

func TestInCI(t *testing.T) {
	t.Parallel()
	if inCI(cleanEnv) {
		t.Error("clean env should not look like CI")
	}
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE", "CIRCLECI"} {
		if !inCI(append([]string{name + "=1"}, cleanEnv...)) {
			t.Errorf("%s=1 should be detected as CI", name)
		}
	}
	if inCI(append([]string{"CI="}, cleanEnv...)) {
		t.Error("empty CI value should not be detected as CI")
	}
}
