package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "company_policies.md", "# Policies\nRemote work is allowed.")
	writeDoc(t, dir, "coding_style.md", "# Style\nUse gofmt.")
	writeDoc(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.md"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	documents, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(documents) != 2 {
		t.Fatalf("loaded %d documents, want 2", len(documents))
	}
	doc, ok := documents["company_policies.md"]
	if !ok {
		t.Fatal("company_policies.md missing")
	}
	if doc.Name != "Company Policies" {
		t.Fatalf("name = %q", doc.Name)
	}
	if !strings.Contains(doc.Content, "Remote work") {
		t.Fatalf("content = %q", doc.Content)
	}
	if doc.Summary == "" {
		t.Fatal("known document should carry its curated summary")
	}
}

func TestLoadMissingDir(t *testing.T) {
	documents, err := Load(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(documents) != 0 {
		t.Fatalf("expected empty set, got %d documents", len(documents))
	}
}

func TestLoadUnknownDocumentHasNoSummary(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "new_handbook.md", "content")
	documents, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if documents["new_handbook.md"].Summary != "" {
		t.Fatal("unknown document should load without a summary")
	}
	if documents["new_handbook.md"].Name != "New Handbook" {
		t.Fatalf("name = %q", documents["new_handbook.md"].Name)
	}
}

func TestSummariesPromptSortedAndComplete(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "company_procedures.md", "b")
	writeDoc(t, dir, "coding_style.md", "a")
	documents, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	prompt := SummariesPrompt(documents)
	styleIdx := strings.Index(prompt, "coding_style.md")
	procIdx := strings.Index(prompt, "company_procedures.md")
	if styleIdx < 0 || procIdx < 0 {
		t.Fatalf("prompt missing filenames:\n%s", prompt)
	}
	if styleIdx > procIdx {
		t.Fatal("filenames must be listed in sorted order")
	}
}
