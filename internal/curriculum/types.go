// Package curriculum defines the programme input and generated curriculum
// document model, along with the deterministic parts of assessment design
// (rubrics and marking schemes derived from module hours).
package curriculum

import "time"

// ModuleInput describes one module of the requested programme.
type ModuleInput struct {
	Title    string   `yaml:"title" json:"title"`
	Hours    float64  `yaml:"hours" json:"hours"`
	Outcomes []string `yaml:"outcomes" json:"outcomes"`
	Summary  string   `yaml:"summary" json:"summary"`
}

// ProgramInput is the parsed programme request a generation job starts from.
type ProgramInput struct {
	Name             string        `yaml:"name" json:"name"`
	Sector           string        `yaml:"sector" json:"sector"`
	Overview         string        `yaml:"overview" json:"overview"`
	TotalHours       float64       `yaml:"total_hours" json:"total_hours"`
	LearningOutcomes []string      `yaml:"learning_outcomes" json:"learning_outcomes"`
	Modules          []ModuleInput `yaml:"modules" json:"modules"`
}

// Section is one generated section of the programme specification.
type Section struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Confidence float64  `json:"confidence"`
	SourceIDs  []string `json:"source_ids"`
}

// ProgramSpec is the generated top-level programme document.
type ProgramSpec struct {
	Overview   string    `json:"overview"`
	Sections   []Section `json:"sections"`
	Confidence float64   `json:"confidence"`
}

// Week is one entry of a unit's weekly plan.
type Week struct {
	Number     int      `json:"number"`
	Topics     []string `json:"topics"`
	Activities []string `json:"activities"`
	Summary    string   `json:"summary"`
}

// UnitSpec is the generated specification for a single module.
type UnitSpec struct {
	ModuleTitle       string   `json:"module_title"`
	Overview          string   `json:"overview"`
	IndicativeContent string   `json:"indicative_content"`
	WeeklyPlan        []Week   `json:"weekly_plan"`
	Confidence        float64  `json:"confidence"`
	SourceIDs         []string `json:"source_ids"`
}

// MCQItem is a generated multiple-choice question.
type MCQItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Rationale    string   `json:"rationale"`
}

// ModuleAssessment groups the MCQs generated for one module.
type ModuleAssessment struct {
	ModuleTitle string    `json:"module_title"`
	Items       []MCQItem `json:"items"`
}

// CaseStudy is a generated scenario assessment.
type CaseStudy struct {
	ModuleTitle    string   `json:"module_title"`
	Title          string   `json:"title"`
	Scenario       string   `json:"scenario"`
	Questions      []string `json:"questions"`
	LearningPoints []string `json:"learning_points"`
}

// RubricCriterion is one weighted assessment criterion.
type RubricCriterion struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Descriptor string  `json:"descriptor"`
}

// GradeBand maps a percentage range to a grade name.
type GradeBand struct {
	Name       string `json:"name"`
	MinPercent int    `json:"min_percent"`
	MaxPercent int    `json:"max_percent"`
}

// Rubric is the deterministic assessment rubric for the programme.
type Rubric struct {
	Criteria []RubricCriterion `json:"criteria"`
	Bands    []GradeBand       `json:"bands"`
}

// ModuleWeight is a module's share of the overall mark.
type ModuleWeight struct {
	ModuleTitle   string  `json:"module_title"`
	Hours         float64 `json:"hours"`
	WeightPercent int     `json:"weight_percent"`
}

// MarkingScheme is the deterministic marking scheme derived from module
// hours.
type MarkingScheme struct {
	ModuleWeights []ModuleWeight `json:"module_weights"`
	PassMark      int            `json:"pass_mark"`
}

// AssessmentPack bundles all generated and derived assessment material.
type AssessmentPack struct {
	MCQs          []ModuleAssessment `json:"mcqs"`
	CaseStudies   []CaseStudy        `json:"case_studies"`
	Rubric        Rubric             `json:"rubric"`
	MarkingScheme MarkingScheme      `json:"marking_scheme"`
}

// ModuleSkills lists the skills a module develops.
type ModuleSkills struct {
	ModuleTitle string  `json:"module_title"`
	Body        string  `json:"body"`
	Confidence  float64 `json:"confidence"`
}

// SkillBook is the generated per-module skills companion.
type SkillBook struct {
	Modules []ModuleSkills `json:"modules"`
}

// QACheck is a single quality-assurance verdict.
type QACheck struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Detail string `json:"detail"`
	Passed bool   `json:"passed"`
}

// QAReport summarizes quality checks over the assembled curriculum.
type QAReport struct {
	Checks         []QACheck `json:"checks"`
	MeanConfidence float64   `json:"mean_confidence"`
	Passed         bool      `json:"passed"`
}

// BenchmarkReport records the advisory competitive-benchmark comparison.
// Completed is false when the comparison could not run; the curriculum is
// still valid in that case.
type BenchmarkReport struct {
	CoverageScore float64 `json:"coverage_score"`
	Summary       string  `json:"summary"`
	Completed     bool    `json:"completed"`
}

// Curriculum is the fully assembled output of a generation job.
type Curriculum struct {
	ProgramID   string          `json:"program_id"`
	ProgramName string          `json:"program_name"`
	ProgramSpec ProgramSpec     `json:"program_spec"`
	Units       []UnitSpec      `json:"units"`
	Assessments AssessmentPack  `json:"assessments"`
	SkillBook   SkillBook       `json:"skill_book"`
	QAReport    QAReport        `json:"qa_report"`
	Benchmark   BenchmarkReport `json:"benchmark"`
	GeneratedAt time.Time       `json:"generated_at"`
}
