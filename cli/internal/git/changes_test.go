package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeletedFiles(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	got, err := DeletedFiles(repo)
	if err != nil {
		t.Fatalf("DeletedFiles: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("DeletedFiles on clean repo = %v, want none", got)
	}
	if err := os.Remove(filepath.Join(repo, "f1.txt")); err != nil {
		t.Fatal(err)
	}
	got, err = DeletedFiles(repo)
	if err != nil {
		t.Fatalf("DeletedFiles: %v", err)
	}
	if len(got) != 1 || got[0] != "f1.txt" {
		t.Errorf("DeletedFiles = %v, want [f1.txt]", got)
	}
}

func TestRestoreFromHead(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	if err := os.Remove(filepath.Join(repo, "f1.txt")); err != nil {
		t.Fatal(err)
	}
	if err := RestoreFromHead(repo, "f1.txt"); err != nil {
		t.Fatalf("RestoreFromHead: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(repo, "f1.txt"))
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != "a\n" {
		t.Errorf("restored content = %q, want %q", data, "a\n")
	}
}

func TestStage_trackedOnly(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "f1.txt", "changed\n")
	writeFile(t, repo, "untracked.txt", "x\n")
	if err := Stage(repo, false); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	files, err := StagedFiles(repo)
	if err != nil {
		t.Fatalf("StagedFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "f1.txt" {
		t.Errorf("StagedFiles = %v, want [f1.txt]", files)
	}
}

func TestStage_includeUntracked(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "untracked.txt", "x\n")
	if err := Stage(repo, true); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	files, err := StagedFiles(repo)
	if err != nil {
		t.Fatalf("StagedFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "untracked.txt" {
		t.Errorf("StagedFiles = %v, want [untracked.txt]", files)
	}
}

func TestHasStagedChanges(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	staged, err := HasStagedChanges(repo)
	if err != nil {
		t.Fatalf("HasStagedChanges: %v", err)
	}
	if staged {
		t.Error("clean repo should have nothing staged")
	}
	writeFile(t, repo, "f1.txt", "changed\n")
	if err := Stage(repo, false); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	staged, err = HasStagedChanges(repo)
	if err != nil {
		t.Fatalf("HasStagedChanges: %v", err)
	}
	if !staged {
		t.Error("staged modification should be reported")
	}
}

func TestHasStagedChanges_noCommits(t *testing.T) {
	t.Parallel()
	repo := initEmptyRepo(t)
	writeFile(t, repo, "a.txt", "x\n")
	run(t, repo, "git", "add", "a.txt")
	staged, err := HasStagedChanges(repo)
	if err != nil {
		t.Fatalf("HasStagedChanges on unborn branch: %v", err)
	}
	if !staged {
		t.Error("staged file on unborn branch should be reported")
	}
}

func TestStagedDiff(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "f1.txt", "changed\n")
	if err := Stage(repo, false); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	diff, err := StagedDiff(repo)
	if err != nil {
		t.Fatalf("StagedDiff: %v", err)
	}
	if !strings.Contains(diff, "+changed") {
		t.Errorf("StagedDiff missing added line:\n%s", diff)
	}
}

func TestCommit(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "f1.txt", "changed\n")
	if err := Stage(repo, false); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := Commit(repo, "apply fixes (iteration 1): update f1.txt"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	subject := runOut(t, repo, "git", "log", "-1", "--format=%s")
	if subject != "apply fixes (iteration 1): update f1.txt" {
		t.Errorf("commit subject = %q", subject)
	}
	clean, err := IsClean(repo)
	if err != nil {
		t.Fatalf("IsClean: %v", err)
	}
	if !clean {
		t.Error("tree should be clean after commit")
	}
}
