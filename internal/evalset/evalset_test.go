package evalset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseValidEvalSet(t *testing.T) {
	raw := []byte(`
queries:
  - question: "how do i rotate keys?"
    relevant_sources: ["security.md"]
  - question: "what is the retention policy?"
    relevant_sources: ["policy.md", "retention.txt"]
`)
	queries, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("queries = %d", len(queries))
	}
	if queries[1].Question != "what is the retention policy?" {
		t.Fatalf("question = %q", queries[1].Question)
	}
	if len(queries[1].RelevantSources) != 2 {
		t.Fatalf("relevant sources = %v", queries[1].RelevantSources)
	}
}

func TestParseRejectsIncompleteEntries(t *testing.T) {
	if _, err := Parse([]byte("queries:\n  - question: \"\"\n    relevant_sources: [\"a\"]\n")); err == nil {
		t.Fatal("expected error for empty question")
	}
	if _, err := Parse([]byte("queries:\n  - question: \"q\"\n    relevant_sources: []\n")); err == nil {
		t.Fatal("expected error for missing relevant sources")
	}
	if _, err := Parse([]byte("queries: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	content := "queries:\n  - question: \"q\"\n    relevant_sources: [\"doc.txt\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	queries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(queries) != 1 || queries[0].RelevantSources[0] != "doc.txt" {
		t.Fatalf("queries = %+v", queries)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
