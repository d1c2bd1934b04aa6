// Package generator produces curriculum content by combining knowledge-base
// retrieval with LLM completion. Every generation is grounded in retrieved
// source excerpts, fact-checked against them, and attributed back to the
// sources that informed it.
package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/cache"
	"github.com/hmorsi/coursewright/internal/llm"
	"github.com/hmorsi/coursewright/internal/modeljson"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

const (
	defaultCacheTTL    = 24 * time.Hour
	defaultCallTimeout = 2 * time.Minute
)

// Request describes one generation.
type Request struct {
	TemplateName   string
	RetrievalQuery string
	Params         map[string]string
	Retrieval      retrieval.Options
	UseCache       bool
}

// Result is the outcome of a generation, including its grounding trail.
type Result struct {
	Content     string              `json:"content"`
	Sources     []retrieval.Context `json:"-"`
	Citations   []Citation          `json:"citations,omitempty"`
	UsedSources []string            `json:"used_sources,omitempty"`
	FactCheck   *FactCheckResult    `json:"fact_check,omitempty"`
	Confidence  float64             `json:"confidence"`
	Cached      bool                `json:"cached"`
	Model       string              `json:"model,omitempty"`
}

// StructuredResult carries the normalized object form of a structured
// generation alongside the usual grounding trail.
type StructuredResult struct {
	Fields      map[string]any      `json:"fields"`
	Sources     []retrieval.Context `json:"-"`
	UsedSources []string            `json:"used_sources,omitempty"`
	Confidence  float64             `json:"confidence"`
	Cached      bool                `json:"cached"`
	Model       string              `json:"model,omitempty"`
}

// Generator wires the retriever, the LLM provider, the prompt registry, and
// the response cache together.
type Generator struct {
	provider    llm.Provider
	retriever   retrieval.Retriever
	cache       cache.Cache
	registry    *Registry
	log         *zap.Logger
	model       string
	cacheTTL    time.Duration
	callTimeout time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithCache enables response caching.
func WithCache(c cache.Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithCacheTTL overrides the default 24h cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *Generator) { g.cacheTTL = ttl }
}

// WithCallTimeout bounds each LLM call.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Generator) { g.callTimeout = d }
}

// WithRegistry replaces the built-in template registry.
func WithRegistry(r *Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// New builds a Generator around the given provider and retriever.
func New(provider llm.Provider, retriever retrieval.Retriever, model string, log *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		provider:    provider,
		retriever:   retriever,
		registry:    NewRegistry(),
		log:         log,
		model:       model,
		cacheTTL:    defaultCacheTTL,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	return g
}

// Generate runs one grounded free-text generation: retrieve, prompt, call the
// model, fact-check, and attribute sources. Confidence is the fact-check
// score scaled to 0..1.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.UseCache && g.cache != nil {
		if res, ok := g.cacheLookup(ctx, req); ok {
			return res, nil
		}
	}

	tmpl, contexts, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := g.complete(ctx, tmpl, req.Params, contexts, false)
	if err != nil {
		return nil, &LLMCallError{Template: req.TemplateName, Err: err}
	}

	res := g.assemble(resp, contexts)
	if req.UseCache && g.cache != nil {
		g.cacheStore(ctx, req, res)
	}
	return res, nil
}

// GenerateStream is Generate with incremental delivery. Chunks are forwarded
// as they arrive; the returned Result holds the full fact-checked content.
// Cached responses are delivered as a single chunk.
func (g *Generator) GenerateStream(ctx context.Context, req Request, onChunk llm.StreamHandler) (*Result, error) {
	if req.UseCache && g.cache != nil {
		if res, ok := g.cacheLookup(ctx, req); ok {
			onChunk(res.Content)
			return res, nil
		}
	}

	tmpl, contexts, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	system, user := tmpl.Render(req.Params, FormatContexts(contexts))
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	resp, err := llm.CompleteStream(callCtx, g.provider, llm.CompletionRequest{
		Model:       g.model,
		Messages:    llm.Chat(system, user),
		MaxTokens:   tmpl.MaxTokens,
		Temperature: tmpl.Temperature,
	}, onChunk)
	if err != nil {
		return nil, &LLMCallError{Template: req.TemplateName, Err: err}
	}

	res := g.assemble(resp, contexts)
	if req.UseCache && g.cache != nil {
		g.cacheStore(ctx, req, res)
	}
	return res, nil
}

// GenerateStructured runs a grounded generation that must yield a JSON
// object. The raw model output goes through lenient parsing and per-context
// normalization, so callers always get a usable field map. Structured output
// skips the lexical fact-check; confidence is a fixed 0.85 when sources were
// retrieved.
func (g *Generator) GenerateStructured(ctx context.Context, req Request, genCtx modeljson.GenContext) (*StructuredResult, error) {
	tmpl, contexts, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := g.complete(ctx, tmpl, req.Params, contexts, true)
	if err != nil {
		return nil, &LLMCallError{Template: req.TemplateName, Err: err}
	}

	parsed, err := modeljson.Parse(resp.Content, genCtx)
	if err != nil {
		g.log.Warn("structured output unparseable, normalizing defaults",
			zap.String("template", req.TemplateName),
			zap.Error(err))
		parsed = nil
	}
	fields := modeljson.Normalize(parsed, genCtx)

	_, used := attributeSources(resp.Content, contexts)
	return &StructuredResult{
		Fields:      fields,
		Sources:     contexts,
		UsedSources: used,
		Confidence:  0.85,
		Model:       resp.Model,
	}, nil
}

// GenerateWithFallback tries the primary generation and degrades gracefully:
// a cached response (even when the request did not ask for caching), then a
// constrained low-temperature retry, then a synthesis stitched directly from
// the top source excerpts. It only errors when no sources exist and nothing
// is cached for the request.
func (g *Generator) GenerateWithFallback(ctx context.Context, req Request) (*Result, error) {
	res, err := g.Generate(ctx, req)
	if err == nil {
		return res, nil
	}
	g.log.Warn("primary generation failed, entering fallback chain",
		zap.String("template", req.TemplateName),
		zap.Error(err))

	if g.cache != nil {
		if cached, ok := g.cacheLookup(ctx, req); ok {
			return cached, nil
		}
	}

	// Without grounding sources there is nothing to retry or synthesize from.
	if _, ok := err.(*NoSourcesError); ok {
		return nil, err
	}

	tmpl, contexts, prepErr := g.prepare(ctx, req)
	if prepErr != nil {
		return nil, prepErr
	}

	constrained := tmpl
	constrained.MaxTokens = 1024
	constrained.Temperature = 0.1
	if resp, retryErr := g.complete(ctx, constrained, req.Params, contexts, false); retryErr == nil {
		return g.assemble(resp, contexts), nil
	} else {
		g.log.Warn("constrained retry failed, synthesizing from excerpts",
			zap.String("template", req.TemplateName),
			zap.Error(retryErr))
	}

	return excerptSynthesis(contexts), nil
}

// prepare resolves the template and retrieves grounding contexts, retrying
// once at the relaxed threshold before giving up.
func (g *Generator) prepare(ctx context.Context, req Request) (Template, []retrieval.Context, error) {
	tmpl, err := g.registry.Get(req.TemplateName)
	if err != nil {
		return Template{}, nil, err
	}

	opts := req.Retrieval.WithDefaults()
	contexts, err := g.retriever.Retrieve(ctx, req.RetrievalQuery, opts)
	if err != nil {
		return Template{}, nil, &RetrievalError{Query: req.RetrievalQuery, Err: err}
	}
	if len(contexts) == 0 {
		relaxed := retrieval.Options{
			MaxSources:    retrieval.RelaxedMaxSources,
			MinSimilarity: retrieval.RelaxedMinSimilarity,
		}
		contexts, err = g.retriever.Retrieve(ctx, req.RetrievalQuery, relaxed)
		if err != nil {
			return Template{}, nil, &RetrievalError{Query: req.RetrievalQuery, Err: err}
		}
		if len(contexts) == 0 {
			return Template{}, nil, &NoSourcesError{Query: req.RetrievalQuery}
		}
		g.log.Info("retrieval relaxed",
			zap.String("query", req.RetrievalQuery),
			zap.Int("sources", len(contexts)))
	}
	return tmpl, contexts, nil
}

func (g *Generator) complete(ctx context.Context, tmpl Template, params map[string]string, contexts []retrieval.Context, jsonMode bool) (*llm.CompletionResponse, error) {
	system, user := tmpl.Render(params, FormatContexts(contexts))
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	return g.provider.Complete(callCtx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    llm.Chat(system, user),
		MaxTokens:   tmpl.MaxTokens,
		Temperature: tmpl.Temperature,
		JSONMode:    jsonMode,
	})
}

// assemble fact-checks the completion and attaches citations and confidence.
func (g *Generator) assemble(resp *llm.CompletionResponse, contexts []retrieval.Context) *Result {
	fc := factCheck(resp.Content, contexts)
	citations, used := attributeSources(resp.Content, contexts)
	return &Result{
		Content:     resp.Content,
		Sources:     contexts,
		Citations:   citations,
		UsedSources: used,
		FactCheck:   &fc,
		Confidence:  float64(fc.OverallScore) / 100,
		Model:       resp.Model,
	}
}

// excerptSynthesis stitches up to three top excerpts into a readable stand-in
// when every model path has failed. It is marked as such and carries a flat
// 0.5 confidence.
func excerptSynthesis(contexts []retrieval.Context) *Result {
	n := len(contexts)
	if n > 3 {
		n = 3
	}
	var sb strings.Builder
	sb.WriteString("_This section was compiled from source material; generation was unavailable._\n\n")
	var used []string
	for _, c := range contexts[:n] {
		fmt.Fprintf(&sb, "**%s**\n\n%s\n\n", c.Metadata.Title, c.Content)
		used = append(used, c.SourceID)
	}
	return &Result{
		Content:     strings.TrimSpace(sb.String()),
		Sources:     contexts[:n],
		UsedSources: used,
		Confidence:  0.5,
	}
}

// cacheKey hashes the template, query, and sorted params. Retrieval options
// are deliberately excluded; the same logical request should hit regardless
// of threshold tuning.
func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.TemplateName))
	h.Write([]byte{0})
	h.Write([]byte(req.RetrievalQuery))
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(req.Params[k]))
	}
	return "gen:" + hex.EncodeToString(h.Sum(nil))
}

func (g *Generator) cacheLookup(ctx context.Context, req Request) (*Result, bool) {
	data, ok, err := g.cache.Get(ctx, cacheKey(req))
	if err != nil {
		g.log.Warn("cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		g.log.Warn("cache entry corrupt", zap.Error(err))
		return nil, false
	}
	res.Cached = true
	return &res, true
}

func (g *Generator) cacheStore(ctx context.Context, req Request, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := g.cache.SetWithTTL(ctx, cacheKey(req), data, g.cacheTTL); err != nil {
		g.log.Warn("cache store failed", zap.Error(err))
	}
}
