package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	chromem "github.com/philippgille/chromem-go"
)

// stubEmbedFunc maps texts onto a tiny deterministic vector space so tests
// run without a network.
func stubEmbedFunc() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, 8)
		for i, c := range text {
			vec[i%8] += float32(c%13) / 13
		}
		// Normalize so cosine similarity behaves.
		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			inv := 1 / sqrt32(norm)
			for i := range vec {
				vec[i] *= inv
			}
		}
		return vec, nil
	}
}

func sqrt32(x float32) float32 {
	z := x
	for i := 0; i < 20; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	db := chromem.NewDB()
	ef := stubEmbedFunc()
	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	return &ChromemStore{db: db, collection: col, embedFunc: ef}
}

func TestAddAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []SourceDocument{
		{ID: "src-1", Title: "Negotiation Basics", Domain: "sales", Credibility: 0.9,
			Content: "Negotiation skills overview for sales professionals."},
		{ID: "src-2", Title: "Conflict Management", Domain: "hr", Credibility: 0.8,
			Content: "Managing workplace conflict through structured mediation."},
	}
	if err := store.Add(ctx, docs); err != nil {
		t.Fatalf("add: %v", err)
	}
	if store.Count() != 2 {
		t.Fatalf("count = %d, want 2", store.Count())
	}

	results, err := store.Retrieve(ctx, "Negotiation skills overview for sales professionals.", Options{MaxSources: 2, MinSimilarity: 0.01})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].SourceID != "src-1" {
		t.Errorf("top result = %s, want src-1", results[0].SourceID)
	}
	if results[0].Metadata.Title != "Negotiation Basics" {
		t.Errorf("metadata title = %q", results[0].Metadata.Title)
	}
	if results[0].Metadata.Credibility != 0.9 {
		t.Errorf("credibility = %v", results[0].Metadata.Credibility)
	}
}

func TestRetrieveThresholdFiltersResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Add(ctx, []SourceDocument{
		{ID: "a", Content: "completely unrelated text about cooking pasta"},
	})

	results, err := store.Retrieve(ctx, "quarterly financial derivatives", Options{MaxSources: 5, MinSimilarity: 0.999})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected threshold to filter all results, got %d", len(results))
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	store := newTestStore(t)
	results, err := store.Retrieve(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results on empty store, got %v", results)
	}
}

func TestLoadCorpus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yml")
	corpus := `sources:
  - id: src-1
    title: Negotiation Basics
    domain: sales
    credibility: 0.9
    content: |
      Negotiation skills matter.
  - id: src-2
    title: Untrusted Notes
    content: Some notes.
`
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadCorpus(path)
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[1].Credibility != 0.5 {
		t.Errorf("default credibility = %v, want 0.5", docs[1].Credibility)
	}
}

func TestLoadCorpusRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yml")
	os.WriteFile(path, []byte("sources:\n  - content: orphan\n"), 0o644)

	if _, err := LoadCorpus(path); err == nil {
		t.Error("expected error for source without id")
	}
}
