// Package retrieval provides the knowledge-base retrieval backend that
// grounds curriculum generation. Documents are stored with their source
// metadata in a local vector store; retrieval returns similarity-ranked
// excerpts (Contexts) for a query.
package retrieval

import "context"

// SourceMetadata describes where a knowledge-base excerpt came from.
type SourceMetadata struct {
	Title       string
	Credibility float64
	Domain      string
}

// Context is a retrieved grounding snippet. It lives for the duration of a
// single generation request and is never persisted on its own.
type Context struct {
	SourceID   string
	Content    string
	Similarity float64
	Metadata   SourceMetadata
}

// Options narrows a retrieval call.
type Options struct {
	MaxSources    int
	MinSimilarity float64
}

// Default and relaxed retrieval thresholds. The relaxed pair is used for the
// single retry when a query returns nothing at the default threshold.
const (
	DefaultMaxSources    = 10
	DefaultMinSimilarity = 0.75
	RelaxedMaxSources    = 5
	RelaxedMinSimilarity = 0.6
)

// WithDefaults fills in zero-valued fields.
func (o Options) WithDefaults() Options {
	if o.MaxSources <= 0 {
		o.MaxSources = DefaultMaxSources
	}
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	return o
}

// Retriever answers similarity queries against the knowledge base, ranked by
// similarity descending.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts Options) ([]Context, error)
}

// SourceDocument is a knowledge-base document to be indexed.
type SourceDocument struct {
	ID          string  `yaml:"id"`
	Title       string  `yaml:"title"`
	Domain      string  `yaml:"domain"`
	Credibility float64 `yaml:"credibility"`
	Content     string  `yaml:"content"`
}
