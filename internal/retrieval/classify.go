package retrieval

import "regexp"

// QueryType is the classification a query is labeled with before fusion
// weights are chosen, per spec.md section 4.5.1.
type QueryType string

const (
	QueryTypeIdentifier QueryType = "identifier"
	QueryTypeStructural QueryType = "structural"
	QueryTypeSemantic   QueryType = "semantic"
)

var camelCasePattern = regexp.MustCompile(`[a-z][A-Z]`)
var snakeCasePattern = regexp.MustCompile(`[A-Za-z0-9]_[A-Za-z0-9]`)

// graphOperationNames are recent-tool-call names that indicate the caller is
// in the middle of a structural/graph-oriented workflow (spec.md section
// 4.5.1's "structural" class).
var graphOperationNames = map[string]bool{
	"analyzeImpact":   true,
	"getDependencies": true,
	"getDescendants":  true,
	"getAncestors":    true,
	"impact":          true,
}

// DetectQueryType labels a query identifier, structural, or semantic. The
// check order matters: identifier-shaped text wins even when recent tool
// calls suggest a structural session, per spec.md's observed precedence
// (identifier patterns are checked first in the source behavior this
// reproduces).
func DetectQueryType(query string, recentToolCalls []string) QueryType {
	if isIdentifierShaped(query) {
		return QueryTypeIdentifier
	}
	for _, name := range recentToolCalls {
		if graphOperationNames[name] {
			return QueryTypeStructural
		}
	}
	return QueryTypeSemantic
}

// isIdentifierShaped reproduces the observed detector: CamelCase,
// snake_case, a path separator, or a literal dot all count, including a
// trailing sentence period — the ambiguity spec.md's Open Questions section
// calls out deliberately, not a bug to fix here.
func isIdentifierShaped(query string) bool {
	if camelCasePattern.MatchString(query) {
		return true
	}
	if snakeCasePattern.MatchString(query) {
		return true
	}
	for _, r := range query {
		if r == '/' || r == '.' {
			return true
		}
	}
	return false
}

// FusionWeights are the per-path weights (sum to 1.0) applied during
// weighted RRF, per spec.md section 4.5.1's table.
type FusionWeights struct {
	FTS   float64
	Dense float64
	Graph float64
}

// WeightsFor returns the fusion weights for a query classification.
func WeightsFor(t QueryType) FusionWeights {
	switch t {
	case QueryTypeIdentifier:
		return FusionWeights{FTS: 0.50, Dense: 0.20, Graph: 0.30}
	case QueryTypeStructural:
		return FusionWeights{FTS: 0.25, Dense: 0.15, Graph: 0.60}
	default:
		return FusionWeights{FTS: 0.25, Dense: 0.50, Graph: 0.25}
	}
}
