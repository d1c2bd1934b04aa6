package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hmorsi/coursewright/internal/curriculum"
	"github.com/hmorsi/coursewright/internal/generator"
	"github.com/hmorsi/coursewright/internal/modeljson"
	"github.com/hmorsi/coursewright/internal/retrieval"
)

const (
	// maxMCQsPerModule caps question generation per module.
	maxMCQsPerModule = 5
	// maxCaseStudies caps scenario generation across the programme.
	maxCaseStudies = 3
	// hoursPerWeek converts module contact hours into weekly-plan length.
	hoursPerWeek = 4
	maxWeeks     = 12
)

// programSections are the fixed specification sections generated for every
// programme.
var programSections = []string{
	"Entry Requirements",
	"Teaching and Learning Methods",
	"Assessment Strategy",
	"Progression",
}

// jobState accumulates artifacts across pipeline stages. Each field is
// restored from its checkpoint on resume.
type jobState struct {
	input       curriculum.ProgramInput
	validation  curriculum.ValidationResult
	sourceIDs   []string
	programSpec curriculum.ProgramSpec
	units       []curriculum.UnitSpec
	assessments curriculum.AssessmentPack
	skillBook   curriculum.SkillBook
	qaReport    curriculum.QAReport
	benchmark   curriculum.BenchmarkReport
}

func (o *Orchestrator) stageValidate(state *jobState) error {
	state.validation = state.input.Validate()
	for _, w := range state.validation.Warnings {
		o.log.Warn("programme input warning", zap.String("warning", w))
	}
	if !state.validation.OK() {
		return fmt.Errorf("invalid programme input: %s", strings.Join(state.validation.Errors, "; "))
	}
	return nil
}

// stageRetrieve probes the knowledge base with one query for the programme
// and one per module. Individual probe failures are logged and skipped; the
// stage fails only when no query returns any source, since an ungroundable
// programme should fail here rather than midway through generation.
func (o *Orchestrator) stageRetrieve(ctx context.Context, state *jobState) error {
	queries := []string{state.input.Name + " " + state.input.Sector + " curriculum"}
	for _, mod := range state.input.Modules {
		queries = append(queries, mod.Title+" "+state.input.Sector)
	}

	seen := make(map[string]bool)
	state.sourceIDs = state.sourceIDs[:0]
	for _, query := range queries {
		contexts, err := o.probeSources(ctx, query)
		if err != nil {
			o.log.Warn("knowledge-base probe failed, skipping query",
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		for _, c := range contexts {
			if !seen[c.SourceID] {
				seen[c.SourceID] = true
				state.sourceIDs = append(state.sourceIDs, c.SourceID)
			}
		}
	}
	if len(state.sourceIDs) == 0 {
		return fmt.Errorf("no knowledge-base sources cover programme %q or its modules", state.input.Name)
	}
	return nil
}

func (o *Orchestrator) probeSources(ctx context.Context, query string) ([]retrieval.Context, error) {
	contexts, err := o.retriever.Retrieve(ctx, query, retrieval.Options{}.WithDefaults())
	if err != nil || len(contexts) > 0 {
		return contexts, err
	}
	return o.retriever.Retrieve(ctx, query, retrieval.Options{
		MaxSources:    retrieval.RelaxedMaxSources,
		MinSimilarity: retrieval.RelaxedMinSimilarity,
	})
}

func (o *Orchestrator) stageProgramSpec(ctx context.Context, state *jobState) error {
	in := state.input
	overview, err := o.gen.GenerateWithFallback(ctx, generator.Request{
		TemplateName:   "program_overview",
		RetrievalQuery: in.Name + " " + in.Sector + " programme overview",
		Params: map[string]string{
			"program_name": in.Name,
			"sector":       in.Sector,
			"outline":      in.Overview,
		},
		UseCache: true,
	})
	if err != nil {
		return fmt.Errorf("generating programme overview: %w", err)
	}

	sections, errs := fanOut(ctx, o.concurrency, programSections,
		func(ctx context.Context, _ int, title string) (curriculum.Section, error) {
			res, err := o.gen.GenerateWithFallback(ctx, generator.Request{
				TemplateName:   "program_section",
				RetrievalQuery: in.Sector + " " + strings.ToLower(title),
				Params: map[string]string{
					"program_name":  in.Name,
					"sector":        in.Sector,
					"section_title": title,
				},
				UseCache: true,
			})
			if err != nil {
				return curriculum.Section{}, err
			}
			return curriculum.Section{
				Title:      title,
				Body:       res.Content,
				Confidence: res.Confidence,
				SourceIDs:  res.UsedSources,
			}, nil
		})
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("generating section %q: %w", programSections[i], err)
		}
	}

	state.programSpec = curriculum.ProgramSpec{
		Overview:   overview.Content,
		Confidence: overview.Confidence,
		Sections:   sections,
	}
	return nil
}

// stageUnitSpecs generates every module's unit specification concurrently.
// A module whose queries find no sources is filled from its input summary
// rather than failing the job.
func (o *Orchestrator) stageUnitSpecs(ctx context.Context, state *jobState) error {
	units, errs := fanOut(ctx, o.concurrency, state.input.Modules,
		func(ctx context.Context, _ int, mod curriculum.ModuleInput) (curriculum.UnitSpec, error) {
			return o.generateUnit(ctx, state.input, mod)
		})
	for i, err := range errs {
		if err != nil {
			title := state.input.Modules[i].Title
			o.log.Warn("unit generation degraded",
				zap.String("module", title),
				zap.Error(err))
			units[i] = placeholderUnit(state.input.Modules[i])
		}
	}
	state.units = units
	return ctx.Err()
}

func (o *Orchestrator) generateUnit(ctx context.Context, in curriculum.ProgramInput, mod curriculum.ModuleInput) (curriculum.UnitSpec, error) {
	params := map[string]string{
		"program_name": in.Name,
		"module_title": mod.Title,
		"hours":        fmt.Sprintf("%.0f", mod.Hours),
		"outcomes":     "- " + strings.Join(mod.Outcomes, "\n- "),
	}
	query := mod.Title + " " + in.Sector

	// The overview and indicative-content texts are independent; generate
	// them side by side.
	texts, errs := fanOut(ctx, 2, []generator.Request{
		{TemplateName: "unit_overview", RetrievalQuery: query, Params: params, UseCache: true},
		{TemplateName: "indicative_content", RetrievalQuery: query + " topics", Params: params, UseCache: true},
	}, func(ctx context.Context, _ int, req generator.Request) (*generator.Result, error) {
		return o.gen.GenerateWithFallback(ctx, req)
	})
	if errs[0] != nil {
		return curriculum.UnitSpec{}, fmt.Errorf("unit overview: %w", errs[0])
	}
	if errs[1] != nil {
		return curriculum.UnitSpec{}, fmt.Errorf("indicative content: %w", errs[1])
	}
	overview, content := texts[0], texts[1]

	unit := curriculum.UnitSpec{
		ModuleTitle:       mod.Title,
		Overview:          overview.Content,
		IndicativeContent: content.Content,
		Confidence:        (overview.Confidence + content.Confidence) / 2,
		SourceIDs:         mergeSourceIDs(overview.UsedSources, content.UsedSources),
	}

	for week := 1; week <= weeksFor(mod.Hours); week++ {
		params["week_number"] = fmt.Sprintf("%d", week)
		res, err := o.gen.GenerateStructured(ctx, generator.Request{
			TemplateName:   "weekly_plan",
			RetrievalQuery: query,
			Params:         params,
		}, modeljson.ContextWeeklyPlan)
		if err != nil {
			o.log.Warn("weekly plan generation failed, skipping week",
				zap.String("module", mod.Title),
				zap.Int("week", week),
				zap.Error(err))
			continue
		}
		unit.WeeklyPlan = append(unit.WeeklyPlan, curriculum.Week{
			Number:     week,
			Topics:     toStrings(res.Fields["topics"]),
			Activities: toStrings(res.Fields["activities"]),
			Summary:    modeljson.FlattenText(res.Fields["summary"]),
		})
	}
	return unit, nil
}

func (o *Orchestrator) stageAssessments(ctx context.Context, state *jobState) error {
	in := state.input

	mcqs, errs := fanOut(ctx, o.concurrency, in.Modules,
		func(ctx context.Context, _ int, mod curriculum.ModuleInput) (curriculum.ModuleAssessment, error) {
			return o.generateMCQs(ctx, in, mod)
		})
	for i, err := range errs {
		if err != nil {
			o.log.Warn("mcq generation degraded",
				zap.String("module", in.Modules[i].Title),
				zap.Error(err))
			mcqs[i] = curriculum.ModuleAssessment{ModuleTitle: in.Modules[i].Title}
		}
	}

	// Case studies are long generations; run them sequentially to keep the
	// provider's rate budget for the parallel MCQ batch.
	var cases []curriculum.CaseStudy
	for i, mod := range in.Modules {
		if i >= maxCaseStudies {
			break
		}
		cs, err := o.generateCaseStudy(ctx, in, mod)
		if err != nil {
			o.log.Warn("case study generation failed, skipping",
				zap.String("module", mod.Title),
				zap.Error(err))
			continue
		}
		cases = append(cases, cs)
	}

	state.assessments = curriculum.AssessmentPack{
		MCQs:          mcqs,
		CaseStudies:   cases,
		Rubric:        curriculum.BuildRubric(),
		MarkingScheme: curriculum.BuildMarkingScheme(in.Modules),
	}
	return ctx.Err()
}

func (o *Orchestrator) generateMCQs(ctx context.Context, in curriculum.ProgramInput, mod curriculum.ModuleInput) (curriculum.ModuleAssessment, error) {
	outcomes := mod.Outcomes
	if len(outcomes) == 0 {
		outcomes = in.LearningOutcomes
	}
	if len(outcomes) > maxMCQsPerModule {
		outcomes = outcomes[:maxMCQsPerModule]
	}

	assessment := curriculum.ModuleAssessment{ModuleTitle: mod.Title}
	for _, outcome := range outcomes {
		res, err := o.gen.GenerateStructured(ctx, generator.Request{
			TemplateName:   "mcq_item",
			RetrievalQuery: mod.Title + " " + outcome,
			Params: map[string]string{
				"module_title": mod.Title,
				"outcome":      outcome,
			},
		}, modeljson.ContextAssessmentItem)
		if err != nil {
			return assessment, fmt.Errorf("mcq for %q: %w", outcome, err)
		}
		item := curriculum.MCQItem{
			Question:     modeljson.FlattenText(res.Fields["question"]),
			Options:      toStrings(res.Fields["options"]),
			CorrectIndex: modeljson.ExtractFirstInteger(res.Fields["correct_index"]),
			Rationale:    modeljson.FlattenText(res.Fields["rationale"]),
		}
		if item.Question == "" || len(item.Options) == 0 {
			o.log.Warn("discarding empty mcq", zap.String("module", mod.Title))
			continue
		}
		if item.CorrectIndex < 0 || item.CorrectIndex >= len(item.Options) {
			item.CorrectIndex = 0
		}
		assessment.Items = append(assessment.Items, item)
	}
	return assessment, nil
}

func (o *Orchestrator) generateCaseStudy(ctx context.Context, in curriculum.ProgramInput, mod curriculum.ModuleInput) (curriculum.CaseStudy, error) {
	res, err := o.gen.GenerateStructured(ctx, generator.Request{
		TemplateName:   "case_study",
		RetrievalQuery: mod.Title + " " + in.Sector + " workplace scenario",
		Params: map[string]string{
			"module_title": mod.Title,
			"sector":       in.Sector,
		},
	}, modeljson.ContextCaseStudy)
	if err != nil {
		return curriculum.CaseStudy{}, err
	}
	return curriculum.CaseStudy{
		ModuleTitle:    mod.Title,
		Title:          modeljson.FlattenText(res.Fields["title"]),
		Scenario:       modeljson.FlattenText(res.Fields["scenario"]),
		Questions:      toStrings(res.Fields["questions"]),
		LearningPoints: toStrings(res.Fields["learning_points"]),
	}, nil
}

func (o *Orchestrator) stageSkillBook(ctx context.Context, state *jobState) error {
	in := state.input
	modules, errs := fanOut(ctx, o.concurrency, in.Modules,
		func(ctx context.Context, _ int, mod curriculum.ModuleInput) (curriculum.ModuleSkills, error) {
			res, err := o.gen.GenerateWithFallback(ctx, generator.Request{
				TemplateName:   "skill_book",
				RetrievalQuery: mod.Title + " workplace skills",
				Params: map[string]string{
					"module_title": mod.Title,
				},
				UseCache: true,
			})
			if err != nil {
				return curriculum.ModuleSkills{}, err
			}
			return curriculum.ModuleSkills{
				ModuleTitle: mod.Title,
				Body:        res.Content,
				Confidence:  res.Confidence,
			}, nil
		})
	for i, err := range errs {
		if err != nil {
			o.log.Warn("skill book generation degraded",
				zap.String("module", in.Modules[i].Title),
				zap.Error(err))
			modules[i] = curriculum.ModuleSkills{ModuleTitle: in.Modules[i].Title}
		}
	}
	state.skillBook = curriculum.SkillBook{Modules: modules}
	return ctx.Err()
}

func (o *Orchestrator) stageQA(state *jobState) error {
	c := state.assemble("", "")
	state.qaReport = o.qa.Check(c)
	if !state.qaReport.Passed {
		o.log.Warn("qa checks flagged issues",
			zap.Float64("mean_confidence", state.qaReport.MeanConfidence))
	}
	return nil
}

// stageBenchmark runs the advisory competitive comparison. Its failures are
// recorded but never fail the job.
func (o *Orchestrator) stageBenchmark(ctx context.Context, state *jobState) error {
	report, err := o.bench.Run(ctx, state.input, state.units)
	if err != nil {
		o.log.Warn("benchmark stage failed, continuing without it", zap.Error(err))
		state.benchmark = curriculum.BenchmarkReport{Completed: false}
		return nil
	}
	state.benchmark = report
	return nil
}

// assemble builds the full curriculum document from the accumulated state.
func (s *jobState) assemble(programID, programName string) *curriculum.Curriculum {
	return &curriculum.Curriculum{
		ProgramID:   programID,
		ProgramName: programName,
		ProgramSpec: s.programSpec,
		Units:       s.units,
		Assessments: s.assessments,
		SkillBook:   s.skillBook,
		QAReport:    s.qaReport,
		Benchmark:   s.benchmark,
	}
}

func placeholderUnit(mod curriculum.ModuleInput) curriculum.UnitSpec {
	return curriculum.UnitSpec{
		ModuleTitle: mod.Title,
		Overview:    mod.Summary,
		Confidence:  0,
	}
}

func weeksFor(hours float64) int {
	weeks := int(hours) / hoursPerWeek
	if weeks < 1 {
		weeks = 1
	}
	if weeks > maxWeeks {
		weeks = maxWeeks
	}
	return weeks
}

func toStrings(v any) []string {
	seq := modeljson.EnsureSequence(v)
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		if s := modeljson.FlattenText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mergeSourceIDs(groups ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, group := range groups {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
	}
	return merged
}
