package retrieval

import "testing"

func TestDetectQueryType(t *testing.T) {
	cases := []struct {
		query   string
		recent  []string
		want    QueryType
	}{
		{"fooBar", nil, QueryTypeIdentifier},
		{"how do I handle auth", nil, QueryTypeSemantic},
		{"q", []string{"analyzeImpact"}, QueryTypeStructural},
		{"snake_case_name", nil, QueryTypeIdentifier},
		{"src/main.go", nil, QueryTypeIdentifier},
	}
	for _, c := range cases {
		got := DetectQueryType(c.query, c.recent)
		if got != c.want {
			t.Errorf("DetectQueryType(%q, %v) = %q, want %q", c.query, c.recent, got, c.want)
		}
	}
}

func TestWeightsForSumToOne(t *testing.T) {
	for _, qt := range []QueryType{QueryTypeIdentifier, QueryTypeSemantic, QueryTypeStructural} {
		w := WeightsFor(qt)
		sum := w.FTS + w.Dense + w.Graph
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("weights for %s sum to %f, want 1.0", qt, sum)
		}
	}
}
