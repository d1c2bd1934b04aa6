package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hmorsi/coursewright/internal/cache"
)

// embeddingTTL keeps cached vectors well past a typical generation run;
// identical retrieval queries recur across jobs for the same programme.
const embeddingTTL = 7 * 24 * time.Hour

// CachedEmbedder wraps an Embedder with a byte cache keyed by a hash of the
// input text. Cache failures degrade to a direct embed, never to an error.
type CachedEmbedder struct {
	inner Embedder
	cache cache.Cache
}

// NewCachedEmbedder wraps e with c.
func NewCachedEmbedder(e Embedder, c cache.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: e, cache: c}
}

func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := e.lookup(ctx, text); ok {
			results[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	fresh, err := e.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fresh {
		results[missingIdx[j]] = vec
		e.store(ctx, missing[j], vec)
	}
	return results, nil
}

func (e *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	data, ok, err := e.cache.Get(ctx, e.key(text))
	if err != nil || !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (e *CachedEmbedder) store(ctx context.Context, text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	_ = e.cache.SetWithTTL(ctx, e.key(text), data, embeddingTTL)
}

func (e *CachedEmbedder) key(text string) string {
	h := sha256.Sum256([]byte(e.inner.Name() + "\x00" + text))
	return "embedding:" + hex.EncodeToString(h[:])
}
