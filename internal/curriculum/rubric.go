package curriculum

import "math"

// Standard grade bands for the generated rubric.
var gradeBands = []GradeBand{
	{Name: "Distinction", MinPercent: 70, MaxPercent: 100},
	{Name: "Merit", MinPercent: 60, MaxPercent: 69},
	{Name: "Pass", MinPercent: 50, MaxPercent: 59},
	{Name: "Fail", MinPercent: 0, MaxPercent: 49},
}

// Static criterion templates; weights are fixed and sum to 100.
var rubricCriteria = []RubricCriterion{
	{Name: "Knowledge and understanding", Weight: 30,
		Descriptor: "Demonstrates command of the module's core concepts and terminology."},
	{Name: "Application and analysis", Weight: 30,
		Descriptor: "Applies concepts to realistic scenarios and analyses outcomes."},
	{Name: "Communication", Weight: 20,
		Descriptor: "Presents reasoning clearly in the form the task requires."},
	{Name: "Professional judgement", Weight: 20,
		Descriptor: "Makes and defends decisions appropriate to the sector context."},
}

// BuildRubric returns the deterministic assessment rubric. No model call is
// involved; the rubric depends only on static templates.
func BuildRubric() Rubric {
	criteria := make([]RubricCriterion, len(rubricCriteria))
	copy(criteria, rubricCriteria)
	bands := make([]GradeBand, len(gradeBands))
	copy(bands, gradeBands)
	return Rubric{Criteria: criteria, Bands: bands}
}

// BuildMarkingScheme derives module weights from contact hours using
// largest-remainder rounding so the integer percentages always sum to 100.
func BuildMarkingScheme(modules []ModuleInput) MarkingScheme {
	scheme := MarkingScheme{PassMark: 50}
	if len(modules) == 0 {
		return scheme
	}

	var totalHours float64
	for _, m := range modules {
		totalHours += m.Hours
	}

	weights := make([]ModuleWeight, len(modules))
	if totalHours <= 0 {
		// Equal split when no hours are declared.
		base := 100 / len(modules)
		for i, m := range modules {
			weights[i] = ModuleWeight{ModuleTitle: m.Title, Hours: m.Hours, WeightPercent: base}
		}
		weights[len(weights)-1].WeightPercent = 100 - base*(len(modules)-1)
		scheme.ModuleWeights = weights
		return scheme
	}

	type remainder struct {
		idx  int
		frac float64
	}
	var remainders []remainder
	assigned := 0
	for i, m := range modules {
		exact := m.Hours / totalHours * 100
		floor := int(math.Floor(exact))
		weights[i] = ModuleWeight{ModuleTitle: m.Title, Hours: m.Hours, WeightPercent: floor}
		assigned += floor
		remainders = append(remainders, remainder{idx: i, frac: exact - float64(floor)})
	}

	// Distribute the leftover points to the largest fractional parts,
	// breaking ties by input order for determinism.
	for assigned < 100 {
		best := 0
		for j := 1; j < len(remainders); j++ {
			if remainders[j].frac > remainders[best].frac {
				best = j
			}
		}
		weights[remainders[best].idx].WeightPercent++
		remainders[best].frac = -1
		assigned++
	}

	scheme.ModuleWeights = weights
	return scheme
}
