package modeljson

// GenContext identifies the kind of document a model response is expected to
// contain. Each context declares the shape its fields must be coerced to.
type GenContext string

const (
	ContextWeeklyPlan     GenContext = "weekly-plan"
	ContextCaseStudy      GenContext = "case-study"
	ContextSimulation     GenContext = "simulation"
	ContextAssessmentItem GenContext = "assessment-item"
	ContextRubric         GenContext = "rubric"
	ContextSlideDeck      GenContext = "slide-deck"
)

// fieldKind is the declared shape of a single field.
type fieldKind int

const (
	kindSequence fieldKind = iota
	kindInteger
	kindText
)

// contextShapes is the declared schema per generation context. Fields the
// model returns that are not declared here pass through untouched; declared
// fields are coerced to their kind, substituting a default (empty sequence,
// zero, empty string) when coercion is impossible.
var contextShapes = map[GenContext]map[string]fieldKind{
	ContextWeeklyPlan: {
		"week":       kindInteger,
		"topics":     kindSequence,
		"activities": kindSequence,
		"summary":    kindText,
	},
	ContextCaseStudy: {
		"title":           kindText,
		"scenario":        kindText,
		"questions":       kindSequence,
		"learning_points": kindSequence,
	},
	ContextSimulation: {
		"title":   kindText,
		"setup":   kindText,
		"roles":   kindSequence,
		"steps":   kindSequence,
		"debrief": kindText,
	},
	ContextAssessmentItem: {
		"question":      kindText,
		"options":       kindSequence,
		"correct_index": kindInteger,
		"rationale":     kindText,
	},
	ContextRubric: {
		"title":    kindText,
		"criteria": kindSequence,
		"levels":   kindSequence,
	},
	ContextSlideDeck: {
		"title":  kindText,
		"slides": kindSequence,
	},
}
