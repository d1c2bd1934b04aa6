// Package embeddings provides the embedding backends that feed the
// knowledge-base vector store.
package embeddings

import "context"

// Embedder turns texts into vectors. Implementations embed a batch per call
// where the backend allows it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the width of the vectors this model emits.
	Dimensions() int

	// Name identifies the model, and keys the embedding cache.
	Name() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}
