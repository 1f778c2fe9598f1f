package router

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

// StagePolicy tags records emitted by PolicyRouter.
const StagePolicy = "stage_policy_router"

// PolicyRouter flags queries containing any configured policy term.
type PolicyRouter struct {
	terms  []string
	logger tracelog.Logger
}

// NewPolicyRouter folds terms to lower case once. The slice is copied.
func NewPolicyRouter(terms []string, logger tracelog.Logger) *PolicyRouter {
	folded := make([]string, len(terms))
	for i, t := range terms {
		folded[i] = foldCase(t)
	}
	return &PolicyRouter{
		terms:  folded,
		logger: tracelog.OrNop(logger),
	}
}

// Detect reports whether any term occurs in the case-folded query.
// An empty term matches every query.
func (p *PolicyRouter) Detect(query string) bool {
	hit := p.match(foldCase(query))
	p.logger.Log(tracelog.Record{
		Stage:  StagePolicy,
		Fields: []tracelog.Field{tracelog.F("policy_keyword_hit", hit)},
	})
	return hit
}

func (p *PolicyRouter) match(lowered string) bool {
	for _, term := range p.terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// Terms returns a copy of the folded terms in configured order.
func (p *PolicyRouter) Terms() []string {
	out := make([]string, len(p.terms))
	copy(out, p.terms)
	return out
}

// cases.Caser keeps state between calls, so each fold gets its own.
func foldCase(s string) string {
	return cases.Lower(language.Und).String(s)
}
