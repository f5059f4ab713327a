// Package knowledge loads the markdown knowledge base the assistant
// answers company questions from.
package knowledge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zuru-melon/assistant/internal/common"
)

// Document is one knowledge-base file with its curated summary.
type Document struct {
	Name     string
	Filename string
	Content  string
	Summary  string
}

// summaries describe each document for the routing prompt. Keyed by
// filename; files without an entry still load, just without a summary.
var summaries = map[string]string{
	"coding_style.md": "ZURU Melon Coding Style Guide: engineering principles, " +
		"language standards, testing requirements, security practices, CI/CD rules, " +
		"and the mandatory code review process.",
	"company_policies.md": "ZURU Melon Company Policies: mission and values, code of " +
		"conduct, AI ethics, data security and privacy, intellectual property, remote " +
		"and flexible work policy, diversity and inclusion, and misconduct reporting.",
	"company_procedures.md": "ZURU Melon Company Procedures: recruitment and hiring, " +
		"onboarding, working hours and leave, the AI project lifecycle, complaint " +
		"handling, GDPR compliance, and ethical review of AI projects.",
}

// Load reads every *.md file under dir. A missing directory yields an empty
// set, not an error: the assistant still answers general questions.
func Load(dir string) (map[string]Document, error) {
	documents := map[string]Document{}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		common.Logger().Warn("knowledge: directory not found", "dir", dir)
		return documents, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", entry.Name(), err)
		}
		stem := strings.TrimSuffix(entry.Name(), ".md")
		documents[entry.Name()] = Document{
			Name:     titleCase(strings.ReplaceAll(stem, "_", " ")),
			Filename: entry.Name(),
			Content:  string(content),
			Summary:  summaries[entry.Name()],
		}
	}
	common.Logger().Info("knowledge: documents loaded", "dir", dir, "count", len(documents))
	return documents, nil
}

// SummariesPrompt renders the document list for the routing prompt.
func SummariesPrompt(documents map[string]Document) string {
	lines := []string{"Available company documents:"}
	for _, filename := range sortedFilenames(documents) {
		lines = append(lines, fmt.Sprintf("- %s: %s", filename, documents[filename].Summary))
	}
	return strings.Join(lines, "\n")
}

func sortedFilenames(documents map[string]Document) []string {
	filenames := make([]string, 0, len(documents))
	for filename := range documents {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)
	return filenames
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
