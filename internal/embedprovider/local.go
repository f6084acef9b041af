package embedprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultLocalBaseURL is the default base URL for a locally running model
// server (Ollama-compatible /api/embed and /api/tags endpoints).
const DefaultLocalBaseURL = "http://localhost:11434"

// localTier identifies which priority slot (large/medium/small) a local
// provider occupies, per spec.md section 4.2's fixed priority order.
type localTier int

const (
	tierLarge localTier = iota
	tierMedium
	tierSmall
)

// LocalProvider embeds text via a local model server reachable over HTTP,
// grounded on the pool's Ollama embeddings provider (same /api/embed,
// /api/tags shape).
type LocalProvider struct {
	baseURL    string
	model      string
	dims       int
	tier       localTier
	httpClient *http.Client
}

func newLocalProvider(baseURL, model string, dims int, tier localTier) *LocalProvider {
	if baseURL == "" {
		baseURL = DefaultLocalBaseURL
	}
	return &LocalProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dims:       dims,
		tier:       tier,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// NewLocalLarge returns the highest-priority local provider. New tries it
// first and selects it whenever its backend's tag endpoint is reachable;
// host memory is not checked.
func NewLocalLarge(baseURL string) *LocalProvider {
	return newLocalProvider(baseURL, "mxbai-embed-large", 1024, tierLarge)
}

// NewLocalMedium returns the second-priority local provider.
func NewLocalMedium(baseURL string) *LocalProvider {
	return newLocalProvider(baseURL, "nomic-embed-text", 768, tierMedium)
}

// NewLocalSmall returns the third-priority local provider.
func NewLocalSmall(baseURL string) *LocalProvider {
	return newLocalProvider(baseURL, "all-minilm", 384, tierSmall)
}

// Reachable probes a lightweight tag endpoint to decide whether this local
// provider's backend is up, without issuing an actual embed request.
func (p *LocalProvider) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

type localEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type localEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *LocalProvider) callEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(localEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local embed provider: unexpected status %d", resp.StatusCode)
	}

	var result localEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("local embed provider: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	return result.Embeddings, nil
}

// Embed implements Provider.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.callEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. Local servers accept batched input
// natively, so this is one request regardless of batch size.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.callEmbed(ctx, texts)
}

// Dimensions implements Provider.
func (p *LocalProvider) Dimensions() int { return p.dims }

// ModelID implements Provider.
func (p *LocalProvider) ModelID() string { return "local:" + p.model }
