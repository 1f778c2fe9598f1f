// Package router holds the query preprocessing stages that run before routing:
// whitespace normalization and keyword policy detection.
package router

import (
	"strings"
	"unicode"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

// StagePreprocess tags records emitted by PreRouter.
const StagePreprocess = "query_preprocess"

// PreRouter normalizes raw query text.
type PreRouter struct {
	logger tracelog.Logger
}

// NewPreRouter returns a PreRouter. A nil logger disables tracing.
func NewPreRouter(logger tracelog.Logger) *PreRouter {
	return &PreRouter{logger: tracelog.OrNop(logger)}
}

// Normalize trims the query and collapses every internal whitespace run to one space.
func (p *PreRouter) Normalize(query string) string {
	normalized := CollapseWhitespace(query)
	p.logger.Log(tracelog.Record{
		Stage: StagePreprocess,
		Fields: []tracelog.Field{
			tracelog.F("original", query),
			tracelog.F("normalized", normalized),
		},
	})
	return normalized
}

// CollapseWhitespace is the pure transform behind Normalize.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// MatchesNormalized reports whether term can occur inside CollapseWhitespace
// output: its only whitespace is single ASCII spaces.
func MatchesNormalized(term string) bool {
	prevSpace := false
	for _, r := range term {
		if !isSpace(r) {
			prevSpace = false
			continue
		}
		if r != ' ' || prevSpace {
			return false
		}
		prevSpace = true
	}
	return true
}

// isSpace extends unicode.IsSpace with the ASCII information separators
// (file, group, record, unit) that line-oriented splitters also break on.
func isSpace(r rune) bool {
	if r >= 0x1c && r <= 0x1f {
		return true
	}
	return unicode.IsSpace(r)
}
