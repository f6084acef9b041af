package embedprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackDeterministic(t *testing.T) {
	p := NewFallback()
	ctx := context.Background()

	v1, err := p.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	v2, err := p.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Len(t, v1, FallbackDims)

	v3, err := p.Embed(ctx, "a completely different sentence")
	require.NoError(t, err)
	require.NotEqual(t, v1, v3)
}

func TestFallbackEmbedBatchMatchesSerial(t *testing.T) {
	p := NewFallback()
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := p.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := p.Embed(ctx, text)
		require.NoError(t, err)
		require.Equal(t, single, batch[i])
	}
}

func TestFallbackDimensionsAndModelID(t *testing.T) {
	p := NewFallback()
	require.Equal(t, FallbackDims, p.Dimensions())
	require.Equal(t, FallbackModelID, p.ModelID())
}
