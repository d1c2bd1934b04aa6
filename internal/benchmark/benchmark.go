// Package benchmark compares a generated programme against competing
// provision in the knowledge base. The comparison is advisory: callers treat
// its failures as a missing report, never as a failed curriculum.
package benchmark

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/generator"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

// Runner scores how well the programme covers the topics competing
// programmes teach, and produces a short narrative comparison.
type Runner struct {
	retriever retrieval.Retriever
	gen       *generator.Generator
	log       *zap.Logger
}

// New creates a benchmark Runner.
func New(retriever retrieval.Retriever, gen *generator.Generator, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{retriever: retriever, gen: gen, log: log}
}

// Run retrieves comparison material for the programme's sector, scores
// topical coverage of the generated units against it, and asks the model for
// a short summary.
func (r *Runner) Run(ctx context.Context, input curriculum.ProgramInput, units []curriculum.UnitSpec) (curriculum.BenchmarkReport, error) {
	query := input.Sector + " competing programmes comparable qualifications"
	contexts, err := r.retriever.Retrieve(ctx, query, retrieval.Options{
		MaxSources:    retrieval.RelaxedMaxSources,
		MinSimilarity: retrieval.RelaxedMinSimilarity,
	})
	if err != nil {
		return curriculum.BenchmarkReport{}, fmt.Errorf("retrieving comparison material: %w", err)
	}
	if len(contexts) == 0 {
		return curriculum.BenchmarkReport{}, fmt.Errorf("no comparison material for sector %q", input.Sector)
	}

	score := coverageScore(units, contexts)

	titles := make([]string, len(input.Modules))
	for i, m := range input.Modules {
		titles[i] = m.Title
	}
	summary, err := r.gen.GenerateWithFallback(ctx, generator.Request{
		TemplateName:   "benchmark_summary",
		RetrievalQuery: query,
		Params: map[string]string{
			"program_name":  input.Name,
			"module_titles": strings.Join(titles, ", "),
		},
	})
	if err != nil {
		// A numeric score without a narrative is still a usable report.
		r.log.Warn("benchmark summary generation failed", zap.Error(err))
		return curriculum.BenchmarkReport{CoverageScore: score, Completed: true}, nil
	}

	return curriculum.BenchmarkReport{
		CoverageScore: score,
		Summary:       summary.Content,
		Completed:     true,
	}, nil
}

// coverageScore is the fraction of significant comparison-material terms
// that appear somewhere in the generated units.
func coverageScore(units []curriculum.UnitSpec, contexts []retrieval.Context) float64 {
	var corpus strings.Builder
	for _, u := range units {
		corpus.WriteString(strings.ToLower(u.Overview))
		corpus.WriteByte(' ')
		corpus.WriteString(strings.ToLower(u.IndicativeContent))
		corpus.WriteByte(' ')
	}
	generated := corpus.String()

	terms := make(map[string]bool)
	for _, c := range contexts {
		for _, w := range strings.Fields(strings.ToLower(c.Content)) {
			w = strings.Trim(w, ".,;:()[]\"'")
			if len(w) > 4 {
				terms[w] = true
			}
		}
	}
	if len(terms) == 0 {
		return 0
	}
	covered := 0
	for term := range terms {
		if strings.Contains(generated, term) {
			covered++
		}
	}
	return float64(covered) / float64(len(terms))
}
