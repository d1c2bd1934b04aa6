package curriculum

import (
	"fmt"
	"math"
	"strings"
)

// hoursTolerance is how far the module hours may drift from the declared
// total before a warning is raised.
const hoursTolerance = 0.5

// ValidationResult separates hard errors from soft warnings. A programme
// with warnings still generates; a programme with errors does not.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether the input can proceed to generation.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate checks the programme input. An overview, at least one module and
// at least one learning outcome are required; a mismatch between declared
// total hours and the sum of module hours is a warning only.
func (p *ProgramInput) Validate() ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(p.Name) == "" {
		result.Errors = append(result.Errors, "programme name is required")
	}
	if strings.TrimSpace(p.Overview) == "" {
		result.Errors = append(result.Errors, "programme overview is required")
	}
	if len(p.Modules) == 0 {
		result.Errors = append(result.Errors, "at least one module is required")
	}

	hasOutcome := len(p.LearningOutcomes) > 0
	for _, m := range p.Modules {
		if len(m.Outcomes) > 0 {
			hasOutcome = true
		}
		if strings.TrimSpace(m.Title) == "" {
			result.Errors = append(result.Errors, "every module needs a title")
		}
	}
	if !hasOutcome {
		result.Errors = append(result.Errors, "at least one learning outcome is required")
	}

	if p.TotalHours > 0 && len(p.Modules) > 0 {
		var sum float64
		for _, m := range p.Modules {
			sum += m.Hours
		}
		if math.Abs(sum-p.TotalHours) > hoursTolerance {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("module hours sum to %.1f but total_hours declares %.1f", sum, p.TotalHours))
		}
	}

	return result
}
