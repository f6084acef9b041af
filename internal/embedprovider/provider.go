// Package embedprovider implements the Embedding Provider (C2): text to
// fixed-dimension vector, with a priority-ordered provider chain, a
// write-through cache, and the contextualization rule of spec.md section
// 4.2.
package embedprovider

import "context"

// Provider is the uniform interface over any text-embedding backend, per
// spec.md section 6.2. All vectors returned by one Provider share the same
// dimensionality and model id; vectors from different Providers are never
// compared.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
}

// Reachable is implemented by providers that can cheaply report whether
// their backend is currently reachable, used during auto-detection (spec.md
// section 4.2's fixed priority chain) and by the rerank provider's local
// reachability check (section 4.5.5).
type Reachable interface {
	Reachable(ctx context.Context) bool
}
