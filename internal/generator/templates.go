package generator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hmorsi/coursewright/internal/retrieval"
)

// Template is a named prompt pair. The user prompt may contain {contexts}
// for the formatted grounding block and {name} placeholders filled from the
// request's template params.
type Template struct {
	Name        string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Render substitutes params and the context block into the user prompt.
// Unknown placeholders are left as-is so a missing param is visible in the
// prompt rather than silently dropped.
func (t Template) Render(params map[string]string, contextBlock string) (system, user string) {
	pairs := make([]string, 0, 2*len(params)+2)
	pairs = append(pairs, "{contexts}", contextBlock)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return t.System, strings.NewReplacer(pairs...).Replace(t.User)
}

// Registry holds the known prompt templates.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry returns a registry pre-populated with the built-in curriculum
// templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}
	for _, t := range builtinTemplates {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) {
	r.mu.Lock()
	r.templates[t.Name] = t
	r.mu.Unlock()
}

// Get looks up a template by name.
func (r *Registry) Get(name string) (Template, error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return Template{}, &TemplateNotFoundError{Name: name}
	}
	return t, nil
}

// FormatContexts renders retrieved contexts into the prompt block injected
// at the {contexts} slot, each excerpt tagged with its citation reference.
func FormatContexts(contexts []retrieval.Context) string {
	if len(contexts) == 0 {
		return "No source material available."
	}
	var sb strings.Builder
	for i, c := range contexts {
		fmt.Fprintf(&sb, "[%d] %s (%s, relevance %.2f)\n%s\n\n", i+1, c.Metadata.Title, c.SourceID, c.Similarity, c.Content)
	}
	return strings.TrimSpace(sb.String())
}

const groundedSystemPrompt = `You are a curriculum designer writing accredited vocational education material.
Ground every claim in the provided source material and stay close to its terminology.
Do not invent statistics, regulations, or named frameworks that are absent from the sources.`

const structuredSystemPrompt = groundedSystemPrompt + `
Respond with a single JSON object matching the requested fields. No markdown fences, no commentary.`

var builtinTemplates = []Template{
	{
		Name:   "program_overview",
		System: groundedSystemPrompt,
		User: `Write the overview for the programme "{program_name}" in the {sector} sector.
Audience: prospective students and employers. Length: three to five paragraphs.

Programme outline provided by the client:
{outline}

Source material:
{contexts}`,
		MaxTokens:   2048,
		Temperature: 0.6,
	},
	{
		Name:   "program_section",
		System: groundedSystemPrompt,
		User: `Write the "{section_title}" section of the specification for the programme "{program_name}" ({sector} sector).
Length: two to four paragraphs, concrete and specific to the sector.

Source material:
{contexts}`,
		MaxTokens:   1536,
		Temperature: 0.6,
	},
	{
		Name:   "unit_overview",
		System: groundedSystemPrompt,
		User: `Write the overview for the unit "{module_title}" ({hours} contact hours) within the programme "{program_name}".
Start with a "## Overview" heading, then cover purpose, key themes, and how the unit is assessed, each under its own "##" heading.

Unit learning outcomes:
{outcomes}

Source material:
{contexts}`,
		MaxTokens:   2048,
		Temperature: 0.6,
	},
	{
		Name:   "indicative_content",
		System: groundedSystemPrompt,
		User: `List the indicative content for the unit "{module_title}" ({hours} contact hours).
Produce a markdown bullet list of eight to fifteen topics, grouped under two or three "##" theme headings.

Source material:
{contexts}`,
		MaxTokens:   1536,
		Temperature: 0.5,
	},
	{
		Name:   "weekly_plan",
		System: structuredSystemPrompt,
		User: `Produce a plan for week {week_number} of the unit "{module_title}".
Fields: "week" (number), "topics" (array of strings), "activities" (array of strings), "summary" (string).

Source material:
{contexts}`,
		MaxTokens:   1024,
		Temperature: 0.4,
	},
	{
		Name:   "mcq_item",
		System: structuredSystemPrompt,
		User: `Write one multiple-choice question assessing the unit "{module_title}", targeting this outcome: {outcome}.
Fields: "question" (string), "options" (array of exactly four strings), "correct_index" (number, zero-based), "rationale" (string).

Source material:
{contexts}`,
		MaxTokens:   1024,
		Temperature: 0.5,
	},
	{
		Name:   "case_study",
		System: structuredSystemPrompt,
		User: `Write a workplace case study for the unit "{module_title}" in the {sector} sector.
Fields: "title" (string), "scenario" (string, 200-400 words), "questions" (array of three to five strings), "learning_points" (array of strings).

Source material:
{contexts}`,
		MaxTokens:   2048,
		Temperature: 0.7,
	},
	{
		Name:   "skill_book",
		System: groundedSystemPrompt,
		User: `Write the skills companion entry for the unit "{module_title}".
For each of three to five named skills, give a "## <skill name>" heading, a short description, and one practice task a learner can do on the job.

Source material:
{contexts}`,
		MaxTokens:   1536,
		Temperature: 0.6,
	},
	{
		Name:   "benchmark_summary",
		System: groundedSystemPrompt,
		User: `Compare the programme "{program_name}" (modules: {module_titles}) against the competing provision described in the sources.
Two paragraphs: where the programme matches the market, and any gaps.

Source material:
{contexts}`,
		MaxTokens:   1024,
		Temperature: 0.4,
	},
}
