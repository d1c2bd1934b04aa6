package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hmorsi/coursewright/internal/embeddings"
)

const collectionName = "knowledge"

const storeFileName = "knowledge.gob.gz"

// ChromemStore implements Retriever using chromem-go. The store is
// in-memory with explicit gob export/import persistence.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// Add indexes source documents, replacing any existing documents with the
// same IDs.
func (s *ChromemStore) Add(ctx context.Context, docs []SourceDocument) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:      doc.ID,
			Content: doc.Content,
			Metadata: map[string]string{
				"title":       doc.Title,
				"domain":      doc.Domain,
				"credibility": strconv.FormatFloat(doc.Credibility, 'f', -1, 64),
			},
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

// Retrieve returns contexts for the query, similarity descending, dropping
// results below opts.MinSimilarity and capping at opts.MaxSources.
func (s *ChromemStore) Retrieve(ctx context.Context, query string, opts Options) ([]Context, error) {
	opts = opts.WithDefaults()

	limit := opts.MaxSources
	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	contexts := make([]Context, 0, len(results))
	for _, r := range results {
		similarity := float64(r.Similarity)
		if similarity < opts.MinSimilarity {
			continue
		}
		credibility, _ := strconv.ParseFloat(r.Metadata["credibility"], 64)
		contexts = append(contexts, Context{
			SourceID:   r.ID,
			Content:    r.Content,
			Similarity: similarity,
			Metadata: SourceMetadata{
				Title:       r.Metadata["title"],
				Credibility: credibility,
				Domain:      r.Metadata["domain"],
			},
		})
	}

	return contexts, nil
}

// Count returns the number of indexed documents.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// Persist saves the store's data to the given directory.
func (s *ChromemStore) Persist(dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, storeFileName), true, "")
}

// Load restores the store's data from the given directory.
func (s *ChromemStore) Load(dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, storeFileName), ""); err != nil {
		return fmt.Errorf("import knowledge store: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}
