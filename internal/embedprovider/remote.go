package embedprovider

import (
	"context"
	"fmt"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/cenkalti/backoff/v4"
)

// RemoteDims is the forced embedding dimension for the remote API provider,
// per spec.md section 4.2 priority 4.
const RemoteDims = 1024

// RemoteProvider embeds text via the OpenAI embeddings API, grounded on the
// pool's openai embeddings provider. RemoteDims is requested through the
// API's dimensions parameter; returned vectors are not truncated afterwards,
// so a model that ignores the parameter yields vectors of its native length.
type RemoteProvider struct {
	client oai.Client
	model  string
}

// NewRemote constructs a remote embedding provider. apiKey must be
// non-empty; callers should treat construction failure as "provider
// unavailable" and fall through to the next priority.
func NewRemote(apiKey, model string) (*RemoteProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedprovider: remote provider requires an API key")
	}
	if model == "" {
		model = string(oai.EmbeddingModelTextEmbedding3Large)
	}
	client := oai.NewClient(option.WithAPIKey(apiKey))
	return &RemoteProvider{client: client, model: model}, nil
}

func (p *RemoteProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	op := func() error {
		resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
			Model:      p.model,
			Dimensions: param.NewOpt(int64(RemoteDims)),
			Input: oai.EmbeddingNewParamsInputUnion{
				OfString: param.NewOpt(text),
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embedprovider: remote: empty response")
		}
		out = float64ToFloat32(resp.Data[0].Embedding)
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("embedprovider: remote embed: %w", err)
	}
	return out, nil
}

// Embed implements Provider.
func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embedOne(ctx, text)
}

// EmbedBatch implements Provider. The OpenAI embeddings endpoint accepts an
// array input, so this is one call regardless of batch size.
func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out [][]float32
	op := func() error {
		resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
			Model:      p.model,
			Dimensions: param.NewOpt(int64(RemoteDims)),
			Input: oai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("embedprovider: remote: expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		result := make([][]float32, len(texts))
		for _, e := range resp.Data {
			if int(e.Index) >= len(texts) {
				return fmt.Errorf("embedprovider: remote: unexpected index %d", e.Index)
			}
			result[e.Index] = float64ToFloat32(e.Embedding)
		}
		out = result
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("embedprovider: remote embed batch: %w", err)
	}
	return out, nil
}

// Dimensions implements Provider.
func (p *RemoteProvider) Dimensions() int { return RemoteDims }

// ModelID implements Provider.
func (p *RemoteProvider) ModelID() string { return "remote:" + p.model }

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
