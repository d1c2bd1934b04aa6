package benchmark

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/generator"
	"github.com/hmorsi/coursewright/internal/llm"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

type stubProvider struct{ response string }

func (p *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.response, Model: req.Model}, nil
}

func (p *stubProvider) Name() string { return "stub" }

type stubRetriever struct {
	contexts []retrieval.Context
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, _ string, _ retrieval.Options) ([]retrieval.Context, error) {
	return r.contexts, r.err
}

func testUnits() []curriculum.UnitSpec {
	return []curriculum.UnitSpec{{
		ModuleTitle:       "Wiring Fundamentals",
		Overview:          "Covers cable selection, isolation procedures and circuit protection.",
		IndicativeContent: "- cables\n- isolation\n- protection",
	}}
}

func newRunner(p llm.Provider, r retrieval.Retriever) *Runner {
	gen := generator.New(p, r, "test-model", zap.NewNop())
	return New(r, gen, zap.NewNop())
}

func TestRunProducesReport(t *testing.T) {
	retr := &stubRetriever{contexts: []retrieval.Context{{
		SourceID:   "competitor",
		Content:    "Competing programmes cover cable selection, isolation procedures and circuit protection.",
		Similarity: 0.7,
		Metadata:   retrieval.SourceMetadata{Title: "Competitor Prospectus"},
	}}}
	runner := newRunner(&stubProvider{response: "The programme matches the market."}, retr)

	report, err := runner.Run(context.Background(), curriculum.ProgramInput{
		Name: "Electrical Installation", Sector: "construction",
		Modules: []curriculum.ModuleInput{{Title: "Wiring Fundamentals"}},
	}, testUnits())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Completed {
		t.Error("report should be completed")
	}
	if report.CoverageScore <= 0.5 {
		t.Errorf("coverage = %.2f, want high overlap", report.CoverageScore)
	}
	if report.Summary == "" {
		t.Error("missing summary")
	}
}

func TestRunFailsWithoutComparisonMaterial(t *testing.T) {
	runner := newRunner(&stubProvider{response: "x"}, &stubRetriever{})
	_, err := runner.Run(context.Background(), curriculum.ProgramInput{Sector: "niche"}, testUnits())
	if err == nil {
		t.Fatal("expected error when nothing to compare against")
	}
}

func TestRunRetrieverError(t *testing.T) {
	runner := newRunner(&stubProvider{response: "x"}, &stubRetriever{err: errors.New("store down")})
	_, err := runner.Run(context.Background(), curriculum.ProgramInput{Sector: "construction"}, testUnits())
	if err == nil {
		t.Fatal("expected error from retriever failure")
	}
}

func TestCoverageScoreNoOverlap(t *testing.T) {
	contexts := []retrieval.Context{{Content: "astrophysics cosmology telescopes"}}
	if got := coverageScore(testUnits(), contexts); got != 0 {
		t.Errorf("coverage = %.2f, want 0", got)
	}
}
