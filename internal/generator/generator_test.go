package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/cache"
	"github.com/hmorsi/coursewright/internal/llm"
	"github.com/hmorsi/coursewright/internal/modeljson"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

type stubProvider struct {
	response string
	err      error
	calls    int
	lastReq  llm.CompletionRequest
}

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.response, Model: req.Model}, nil
}

func (p *stubProvider) Name() string { return "stub" }

type stubRetriever struct {
	contexts []retrieval.Context
	relaxed  []retrieval.Context
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string, opts retrieval.Options) ([]retrieval.Context, error) {
	if r.err != nil {
		return nil, r.err
	}
	if opts.MinSimilarity == retrieval.RelaxedMinSimilarity {
		return r.relaxed, nil
	}
	return r.contexts, nil
}

func singleContext() []retrieval.Context {
	return []retrieval.Context{{
		SourceID:   "iet-guide",
		Content:    "The unit covers workplace electrical safety, inspection, and testing procedures under current wiring regulations.",
		Similarity: 0.8,
		Metadata:   retrieval.SourceMetadata{Title: "IET Guide", Credibility: 0.9, Domain: "electrical"},
	}}
}

func newTestGenerator(p llm.Provider, r retrieval.Retriever, opts ...Option) *Generator {
	return New(p, r, "test-model", zap.NewNop(), opts...)
}

func TestGenerateGroundedResult(t *testing.T) {
	provider := &stubProvider{response: "The unit covers workplace electrical safety and inspection procedures under current wiring regulations."}
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()})

	res, err := gen.Generate(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety unit",
		Params:         map[string]string{"module_title": "Electrical Safety", "hours": "40"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(res.Sources))
	}
	if len(res.UsedSources) != 1 || res.UsedSources[0] != "iet-guide" {
		t.Errorf("used sources = %v, want [iet-guide]", res.UsedSources)
	}
	if res.FactCheck == nil {
		t.Fatal("missing fact check")
	}
	if res.Confidence != float64(res.FactCheck.OverallScore)/100 {
		t.Errorf("confidence %v does not track fact-check score %d", res.Confidence, res.FactCheck.OverallScore)
	}
	if res.Cached {
		t.Error("fresh result marked cached")
	}
	if !strings.Contains(provider.lastReq.Messages[1].Content, "Electrical Safety") {
		t.Error("template params not rendered into prompt")
	}
}

func TestGenerateUnknownTemplate(t *testing.T) {
	gen := newTestGenerator(&stubProvider{}, &stubRetriever{contexts: singleContext()})
	_, err := gen.Generate(context.Background(), Request{TemplateName: "nope"})
	var tnf *TemplateNotFoundError
	if !errors.As(err, &tnf) {
		t.Fatalf("err = %v, want TemplateNotFoundError", err)
	}
}

func TestGenerateRelaxedRetrievalRetry(t *testing.T) {
	provider := &stubProvider{response: "Content grounded in the relaxed source."}
	retr := &stubRetriever{relaxed: singleContext()}
	gen := newTestGenerator(provider, retr)

	res, err := gen.Generate(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "niche topic",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Sources) != 1 {
		t.Errorf("relaxed retry should have found a source, got %d", len(res.Sources))
	}
}

func TestGenerateNoSources(t *testing.T) {
	gen := newTestGenerator(&stubProvider{}, &stubRetriever{})
	_, err := gen.Generate(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "void",
	})
	var nse *NoSourcesError
	if !errors.As(err, &nse) {
		t.Fatalf("err = %v, want NoSourcesError", err)
	}
}

func TestGenerateCacheRoundTrip(t *testing.T) {
	provider := &stubProvider{response: "Cached once, served twice."}
	mem := cache.NewMemory()
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()}, WithCache(mem))

	req := Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety",
		Params:         map[string]string{"module_title": "Safety"},
		UseCache:       true,
	}
	first, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if first.Cached {
		t.Error("first result should not be cached")
	}
	second, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !second.Cached {
		t.Error("second result should come from cache")
	}
	if second.Content != first.Content {
		t.Error("cached content diverged")
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestGenerateStructuredNormalizes(t *testing.T) {
	provider := &stubProvider{response: "```json\n{\"week\": \"3\", \"topics\": \"safety\", \"activities\": [], \"summary\": \"intro\",}\n```"}
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()})

	res, err := gen.GenerateStructured(context.Background(), Request{
		TemplateName:   "weekly_plan",
		RetrievalQuery: "week plan",
	}, modeljson.ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if !provider.lastReq.JSONMode {
		t.Error("structured generation should request JSON mode")
	}
	if got := res.Fields["week"]; got != 3 {
		t.Errorf("week = %v (%T), want 3", got, got)
	}
	topics, ok := res.Fields["topics"].([]any)
	if !ok || len(topics) != 1 {
		t.Errorf("topics = %v, want single-element sequence", res.Fields["topics"])
	}
	if res.Confidence != 0.85 {
		t.Errorf("confidence = %v, want fixed 0.85", res.Confidence)
	}
}

func TestGenerateStructuredGarbageStillReturnsFields(t *testing.T) {
	provider := &stubProvider{response: "total nonsense, no json at all"}
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()})

	res, err := gen.GenerateStructured(context.Background(), Request{
		TemplateName:   "weekly_plan",
		RetrievalQuery: "week plan",
	}, modeljson.ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if _, ok := res.Fields["topics"]; !ok {
		t.Error("declared fields should be present even for unparseable output")
	}
}

func TestFallbackExcerptSynthesis(t *testing.T) {
	provider := &stubProvider{err: errors.New("model down")}
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()})

	res, err := gen.GenerateWithFallback(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety",
	})
	if err != nil {
		t.Fatalf("GenerateWithFallback: %v", err)
	}
	if res.Confidence != 0.5 {
		t.Errorf("excerpt synthesis confidence = %v, want 0.5", res.Confidence)
	}
	if res.Cached {
		t.Error("synthesized result marked cached")
	}
	if !strings.Contains(res.Content, "compiled from source material") {
		t.Error("synthesis missing disclaimer")
	}
	if !strings.Contains(res.Content, "IET Guide") {
		t.Error("synthesis missing excerpt content")
	}
}

func TestFallbackUsesCacheWhenModelFails(t *testing.T) {
	mem := cache.NewMemory()
	good := &stubProvider{response: "Previously generated content."}
	req := Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety",
		UseCache:       true,
	}
	warm := newTestGenerator(good, &stubRetriever{contexts: singleContext()}, WithCache(mem))
	if _, err := warm.Generate(context.Background(), req); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	broken := newTestGenerator(&stubProvider{err: errors.New("model down")}, &stubRetriever{contexts: singleContext()}, WithCache(mem))
	req.UseCache = false
	res, err := broken.GenerateWithFallback(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateWithFallback: %v", err)
	}
	if !res.Cached {
		t.Error("fallback should have served the cached response")
	}
}

func TestFallbackServesCacheWhenSourcesVanish(t *testing.T) {
	mem := cache.NewMemory()
	req := Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety",
		UseCache:       true,
	}
	warm := newTestGenerator(&stubProvider{response: "Previously generated content."},
		&stubRetriever{contexts: singleContext()}, WithCache(mem))
	if _, err := warm.Generate(context.Background(), req); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	empty := newTestGenerator(&stubProvider{response: "unreachable"}, &stubRetriever{}, WithCache(mem))
	req.UseCache = false
	res, err := empty.GenerateWithFallback(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateWithFallback: %v", err)
	}
	if !res.Cached {
		t.Error("cached response should be served when retrieval comes back empty")
	}
}

func TestFallbackNoSourcesStillErrors(t *testing.T) {
	gen := newTestGenerator(&stubProvider{}, &stubRetriever{})
	_, err := gen.GenerateWithFallback(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "void",
	})
	var nse *NoSourcesError
	if !errors.As(err, &nse) {
		t.Fatalf("err = %v, want NoSourcesError", err)
	}
}

func TestGenerateStreamFallsBackToSingleChunk(t *testing.T) {
	provider := &stubProvider{response: "Streamed in one piece."}
	gen := newTestGenerator(provider, &stubRetriever{contexts: singleContext()})

	var chunks []string
	res, err := gen.GenerateStream(context.Background(), Request{
		TemplateName:   "unit_overview",
		RetrievalQuery: "electrical safety",
	}, func(chunk string) { chunks = append(chunks, chunk) })
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != res.Content {
		t.Errorf("chunks = %v, want single chunk equal to content", chunks)
	}
}

func TestCacheKeyStableUnderParamOrder(t *testing.T) {
	a := Request{TemplateName: "t", RetrievalQuery: "q", Params: map[string]string{"x": "1", "y": "2"}}
	b := Request{TemplateName: "t", RetrievalQuery: "q", Params: map[string]string{"y": "2", "x": "1"}}
	if cacheKey(a) != cacheKey(b) {
		t.Error("cache key should not depend on param iteration order")
	}
	c := Request{TemplateName: "t", RetrievalQuery: "q", Params: map[string]string{"x": "1", "y": "3"}}
	if cacheKey(a) == cacheKey(c) {
		t.Error("different params should produce different keys")
	}
}
