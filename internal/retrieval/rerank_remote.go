package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dotcommander/memengine/internal/embedprovider"
)

// RemoteReranker reranks by cosine similarity between the query and each
// candidate's text, both embedded via the remote OpenAI-backed embedding
// provider (embedprovider.RemoteProvider) — there is no dedicated remote
// rerank endpoint in the wired SDK, so the remote rerank provider is built
// on the same embedding call the remote embedding provider already makes,
// scored by this file's cosineSimilarity.
type RemoteReranker struct {
	provider embedprovider.Provider
}

// NewRemoteReranker constructs a remote reranker. apiKey must be non-empty.
func NewRemoteReranker(apiKey, model string) (*RemoteReranker, error) {
	p, err := embedprovider.NewRemote(apiKey, model)
	if err != nil {
		return nil, fmt.Errorf("retrieval: remote reranker: %w", err)
	}
	return &RemoteReranker{provider: p}, nil
}

// Rerank implements Reranker. On timeout or provider error it degrades to
// passthrough for the whole batch, per spec.md section 4.5.5.
func (r *RemoteReranker) Rerank(ctx context.Context, query string, candidates []RerankCandidate, topK int) ([]RerankScore, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteRerankTimeout)
	defer cancel()

	qvec, err := r.provider.Embed(ctx, query)
	if err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}
	vecs, err := r.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return PassthroughReranker{}.Rerank(ctx, query, candidates, topK)
	}

	out := make([]RerankScore, 0, len(candidates))
	for i, c := range candidates {
		if i >= len(vecs) || vecs[i] == nil {
			continue
		}
		out = append(out, RerankScore{ID: c.ID, Score: cosineSimilarity(qvec, vecs[i])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
