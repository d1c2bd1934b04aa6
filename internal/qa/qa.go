// Package qa runs quality-assurance checks over an assembled curriculum:
// structural completeness of the generated markdown and a confidence floor
// across the generated parts.
package qa

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hmorsi/coursewright/internal/curriculum"
)

// DefaultConfidenceFloor is the minimum acceptable confidence for a
// generated unit or programme section.
const DefaultConfidenceFloor = 0.6

// Checker verifies a curriculum document.
type Checker struct {
	md              goldmark.Markdown
	confidenceFloor float64
}

// New creates a Checker with the given confidence floor; a zero floor means
// the default.
func New(confidenceFloor float64) *Checker {
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Checker{
		md:              goldmark.New(),
		confidenceFloor: confidenceFloor,
	}
}

// Check runs every QA check and aggregates the verdicts into a report. The
// report passes only when all checks pass.
func (c *Checker) Check(cur *curriculum.Curriculum) curriculum.QAReport {
	var report curriculum.QAReport

	report.Checks = append(report.Checks, c.checkProgramSpec(cur.ProgramSpec)...)
	for i := range cur.Units {
		report.Checks = append(report.Checks, c.checkUnit(&cur.Units[i])...)
	}
	report.Checks = append(report.Checks, c.checkAssessments(&cur.Assessments)...)

	var sum float64
	var n int
	for _, s := range cur.ProgramSpec.Sections {
		sum += s.Confidence
		n++
	}
	for _, u := range cur.Units {
		sum += u.Confidence
		n++
	}
	if n > 0 {
		report.MeanConfidence = sum / float64(n)
	}

	report.Passed = true
	for _, check := range report.Checks {
		if !check.Passed {
			report.Passed = false
			break
		}
	}
	return report
}

func (c *Checker) checkProgramSpec(spec curriculum.ProgramSpec) []curriculum.QACheck {
	checks := []curriculum.QACheck{{
		Name:   "program_overview_present",
		Target: "program_spec",
		Passed: strings.TrimSpace(spec.Overview) != "",
		Detail: "programme overview must not be empty",
	}}
	for _, s := range spec.Sections {
		checks = append(checks, curriculum.QACheck{
			Name:   "section_body_present",
			Target: s.Title,
			Passed: strings.TrimSpace(s.Body) != "",
			Detail: "section body must not be empty",
		})
		checks = append(checks, c.confidenceCheck(s.Title, s.Confidence))
	}
	return checks
}

func (c *Checker) checkUnit(unit *curriculum.UnitSpec) []curriculum.QACheck {
	checks := []curriculum.QACheck{
		{
			Name:   "unit_overview_structured",
			Target: unit.ModuleTitle,
			Passed: c.hasHeading(unit.Overview) && c.hasBody(unit.Overview),
			Detail: "unit overview needs at least one heading with body text",
		},
		{
			Name:   "indicative_content_listed",
			Target: unit.ModuleTitle,
			Passed: c.hasList(unit.IndicativeContent),
			Detail: "indicative content must contain a topic list",
		},
		{
			Name:   "weekly_plan_present",
			Target: unit.ModuleTitle,
			Passed: len(unit.WeeklyPlan) > 0,
			Detail: "unit needs at least one planned week",
		},
		c.confidenceCheck(unit.ModuleTitle, unit.Confidence),
	}
	return checks
}

func (c *Checker) checkAssessments(pack *curriculum.AssessmentPack) []curriculum.QACheck {
	var totalItems int
	for _, m := range pack.MCQs {
		totalItems += len(m.Items)
	}
	var weight float64
	for _, cr := range pack.Rubric.Criteria {
		weight += cr.Weight
	}
	var moduleWeight int
	for _, w := range pack.MarkingScheme.ModuleWeights {
		moduleWeight += w.WeightPercent
	}
	return []curriculum.QACheck{
		{
			Name:   "mcqs_present",
			Target: "assessments",
			Passed: totalItems > 0,
			Detail: "at least one multiple-choice question is required",
		},
		{
			Name:   "rubric_weights_sum",
			Target: "assessments",
			Passed: weight == 100,
			Detail: fmt.Sprintf("rubric criteria weights sum to %.0f, want 100", weight),
		},
		{
			Name:   "marking_scheme_sum",
			Target: "assessments",
			Passed: moduleWeight == 100,
			Detail: fmt.Sprintf("module weights sum to %d, want 100", moduleWeight),
		},
	}
}

func (c *Checker) confidenceCheck(target string, confidence float64) curriculum.QACheck {
	return curriculum.QACheck{
		Name:   "confidence_floor",
		Target: target,
		Passed: confidence >= c.confidenceFloor,
		Detail: fmt.Sprintf("confidence %.2f against floor %.2f", confidence, c.confidenceFloor),
	}
}

// hasHeading reports whether the markdown contains at least one heading.
func (c *Checker) hasHeading(markdown string) bool {
	found := false
	c.walk(markdown, func(n ast.Node) {
		if _, ok := n.(*ast.Heading); ok {
			found = true
		}
	})
	return found
}

// hasBody reports whether the markdown contains at least one paragraph.
func (c *Checker) hasBody(markdown string) bool {
	found := false
	c.walk(markdown, func(n ast.Node) {
		if _, ok := n.(*ast.Paragraph); ok {
			found = true
		}
	})
	return found
}

// hasList reports whether the markdown contains a non-empty list.
func (c *Checker) hasList(markdown string) bool {
	found := false
	c.walk(markdown, func(n ast.Node) {
		if list, ok := n.(*ast.List); ok && list.ChildCount() > 0 {
			found = true
		}
	})
	return found
}

func (c *Checker) walk(markdown string, visit func(ast.Node)) {
	source := []byte(markdown)
	root := c.md.Parser().Parse(text.NewReader(source))
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			visit(n)
		}
		return ast.WalkContinue, nil
	})
}
