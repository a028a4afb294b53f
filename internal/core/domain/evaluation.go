package domain

// EvalQuery is one labeled question for the offline retrieval benchmark: a
// retrieval counts as a hit when any retrieved source contains one of the
// relevant source identifiers.
type EvalQuery struct {
	Question        string   `yaml:"question" json:"question"`
	RelevantSources []string `yaml:"relevant_sources" json:"relevant_sources"`
}

// BenchmarkReport aggregates offline retrieval quality over an eval set.
type BenchmarkReport struct {
	Queries int     `json:"queries"`
	HitAtK  float64 `json:"hit_at_k"`
	MRR     float64 `json:"mrr"`
}
