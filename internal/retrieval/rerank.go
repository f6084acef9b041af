package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dotcommander/memengine/internal/models"
)

// RerankCandidate is the textual representation of a memory passed to a
// rerank provider, per spec.md section 6.2.
type RerankCandidate struct {
	ID      string
	Content string
}

// RerankScore is one scored result from a rerank provider call.
type RerankScore struct {
	ID    string
	Score float64
}

// Reranker is the uniform rerank-provider interface, spec.md section 6.2.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate, topK int) ([]RerankScore, error)
}

// Reachable mirrors embedprovider.Reachable for rerank providers.
type Reachable interface {
	Reachable(ctx context.Context) bool
}

const (
	localRerankTimeout  = 5 * time.Second
	remoteRerankTimeout = 10 * time.Second
)

// CandidateText builds the textual representation a rerank provider scores
// against the query, per spec.md section 4.5.5:
// "[<kind>] <related_files joined>: <content>".
func CandidateText(m *models.Memory) string {
	return fmt.Sprintf("[%s] %s: %s", m.Kind, strings.Join(m.RelatedFiles, ","), m.Content)
}

// PassthroughReranker returns the first topK candidates by input order, with
// scores 1 - rank/N, the degrade target for timeouts/errors/no-provider per
// spec.md section 4.5.5.
type PassthroughReranker struct{}

func (PassthroughReranker) Rerank(_ context.Context, _ string, candidates []RerankCandidate, topK int) ([]RerankScore, error) {
	n := len(candidates)
	if n == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > n {
		topK = n
	}
	out := make([]RerankScore, topK)
	for i := 0; i < topK; i++ {
		out[i] = RerankScore{ID: candidates[i].ID, Score: 1 - float64(i)/float64(n)}
	}
	return out, nil
}

// LocalReranker calls a local cross-encoder server reachable over HTTP,
// grounded on embedprovider.LocalProvider's tag-endpoint reachability check.
type LocalReranker struct {
	baseURL string
	client  *http.Client
}

// NewLocalReranker returns a local reranker client against baseURL (empty
// defaults to the Ollama-compatible default used by embedprovider).
func NewLocalReranker(baseURL string) *LocalReranker {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &LocalReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: localRerankTimeout},
	}
}

// Reachable probes a lightweight tag endpoint, same shape as
// embedprovider.LocalProvider.Reachable.
func (r *LocalReranker) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

type localRerankRequest struct {
	Query      string   `json:"query"`
	Documents  []string `json:"documents"`
	TopN       int      `json:"top_n"`
}

type localRerankResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type localRerankResponse struct {
	Results []localRerankResponseItem `json:"results"`
}

// Rerank implements Reranker. On timeout or any transport/decode error it
// degrades to passthrough for the whole batch, per spec.md section 4.5.5.
func (r *LocalReranker) Rerank(ctx context.Context, query string, candidates []RerankCandidate, topK int) ([]RerankScore, error) {
	ctx, cancel := context.WithTimeout(ctx, localRerankTimeout)
	defer cancel()

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}
	body, err := json.Marshal(localRerankRequest{Query: query, Documents: docs, TopN: topK})
	if err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/rerank", bytes.NewReader(body))
	if err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}

	var parsed localRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}

	out := make([]RerankScore, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(candidates) {
			continue
		}
		out = append(out, RerankScore{ID: candidates[item.Index].ID, Score: item.RelevanceScore})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// SelectReranker picks the rerank provider per spec.md section 4.5.5's
// priority: local if reachable, else remote if an API key is configured,
// else passthrough.
func SelectReranker(ctx context.Context, localBaseURL, remoteAPIKey string) Reranker {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	local := NewLocalReranker(localBaseURL)
	if local.Reachable(probeCtx) {
		return local
	}
	if remoteAPIKey != "" {
		if remote, err := NewRemoteReranker(remoteAPIKey, ""); err == nil {
			return remote
		}
	}
	return PassthroughReranker{}
}
