package evalset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

// Load reads a labeled evaluation set used by the offline retrieval
// benchmark. Format:
//
//	queries:
//	  - question: "how do i rotate keys?"
//	    relevant_sources: ["security.md"]
func Load(path string) ([]domain.EvalQuery, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval set: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]domain.EvalQuery, error) {
	var file struct {
		Queries []domain.EvalQuery `yaml:"queries"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse eval set: %w", err)
	}

	for i, q := range file.Queries {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("eval query %d has an empty question", i)
		}
		if len(q.RelevantSources) == 0 {
			return nil, fmt.Errorf("eval query %d (%q) has no relevant sources", i, q.Question)
		}
	}
	return file.Queries, nil
}
