package embedprovider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// FallbackDims is the bundled fallback's fixed dimension, per spec.md
// section 4.2 priority 5.
const FallbackDims = 384

// FallbackModelID is the model id recorded for vectors produced by the
// bundled fallback provider.
const FallbackModelID = "bundled-hash-384"

// FallbackProvider is a deterministic, offline, zero-weight embedder: it
// hashes the input text into a reproducible unit vector. It exists so the
// engine always has a working provider with no external dependency, and is
// what tests use by default.
type FallbackProvider struct{}

// NewFallback returns the bundled fallback provider.
func NewFallback() *FallbackProvider { return &FallbackProvider{} }

// Embed implements Provider. The same text always yields the same vector.
func (p *FallbackProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

// EmbedBatch implements Provider, falling back to serial calls: the bundled
// provider has no native batch API, matching spec.md section 4.2's
// "falls back to serial on unsupported providers" rule.
func (p *FallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements Provider.
func (p *FallbackProvider) Dimensions() int { return FallbackDims }

// ModelID implements Provider.
func (p *FallbackProvider) ModelID() string { return FallbackModelID }

// hashEmbed expands a SHA-256 digest of text into a FallbackDims-length
// unit vector via repeated re-hashing, so two equal texts always produce
// bit-identical vectors and unrelated texts spread roughly uniformly.
func hashEmbed(text string) []float32 {
	out := make([]float32, FallbackDims)
	block := sha256.Sum256([]byte(text))
	seed := block[:]
	idx := 0
	for idx < FallbackDims {
		for i := 0; i+4 <= len(seed) && idx < FallbackDims; i += 4 {
			u := binary.LittleEndian.Uint32(seed[i : i+4])
			// Map to [-1, 1) to resemble a real embedding's value range.
			out[idx] = float32(int32(u))/float32(math.MaxInt32) - 0.0
			idx++
		}
		next := sha256.Sum256(seed)
		seed = next[:]
	}
	return normalize(out)
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
