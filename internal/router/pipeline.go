package router

import "github.com/straja-ai/prerouter/internal/tracelog"

// Result is the outcome of running a query through both stages.
type Result struct {
	Original         string `json:"original"`
	Normalized       string `json:"normalized"`
	PolicyKeywordHit bool   `json:"policy_keyword_hit"`
}

// Pipeline runs normalization, then policy detection on the normalized text.
type Pipeline struct {
	Pre    *PreRouter
	Policy *PolicyRouter
}

// NewPipeline wires both stages to the same logger.
func NewPipeline(terms []string, logger tracelog.Logger) *Pipeline {
	return &Pipeline{
		Pre:    NewPreRouter(logger),
		Policy: NewPolicyRouter(terms, logger),
	}
}

func (p *Pipeline) Run(query string) Result {
	normalized := p.Pre.Normalize(query)
	return Result{
		Original:         query,
		Normalized:       normalized,
		PolicyKeywordHit: p.Policy.Detect(normalized),
	}
}
