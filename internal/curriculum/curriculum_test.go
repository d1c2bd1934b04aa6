package curriculum

import (
	"testing"
)

func validInput() *ProgramInput {
	return &ProgramInput{
		Name:       "Professional Sales Diploma",
		Sector:     "sales",
		Overview:   "A practical programme for early-career sales staff.",
		TotalHours: 120,
		Modules: []ModuleInput{
			{Title: "Negotiation Skills", Hours: 60, Outcomes: []string{"Close a structured negotiation"}},
			{Title: "Account Management", Hours: 60, Outcomes: []string{"Plan a key-account review"}},
		},
	}
}

func TestValidateAcceptsCompleteInput(t *testing.T) {
	result := validInput().Validate()
	if !result.OK() {
		t.Fatalf("expected valid input, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateRequiresOverviewModulesOutcomes(t *testing.T) {
	input := &ProgramInput{Name: "X"}
	result := input.Validate()
	if result.OK() {
		t.Fatal("expected errors")
	}
	if len(result.Errors) < 3 {
		t.Errorf("expected overview, module, and outcome errors, got %v", result.Errors)
	}
}

func TestValidateHoursMismatchIsWarningOnly(t *testing.T) {
	input := validInput()
	input.TotalHours = 200

	result := input.Validate()
	if !result.OK() {
		t.Fatalf("hours mismatch must not be an error: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected exactly one warning, got %v", result.Warnings)
	}
}

func TestBuildRubricWeightsSumTo100(t *testing.T) {
	rubric := BuildRubric()
	var sum float64
	for _, c := range rubric.Criteria {
		sum += c.Weight
	}
	if sum != 100 {
		t.Errorf("criteria weights sum to %v, want 100", sum)
	}
	if len(rubric.Bands) != 4 {
		t.Errorf("expected 4 grade bands, got %d", len(rubric.Bands))
	}
}

func TestBuildMarkingSchemeWeightsSumTo100(t *testing.T) {
	cases := [][]ModuleInput{
		{{Title: "A", Hours: 60}, {Title: "B", Hours: 60}},
		{{Title: "A", Hours: 10}, {Title: "B", Hours: 20}, {Title: "C", Hours: 33}},
		{{Title: "A", Hours: 1}, {Title: "B", Hours: 1}, {Title: "C", Hours: 1}},
		{{Title: "A"}, {Title: "B"}},
	}
	for _, modules := range cases {
		scheme := BuildMarkingScheme(modules)
		sum := 0
		for _, w := range scheme.ModuleWeights {
			sum += w.WeightPercent
		}
		if sum != 100 {
			t.Errorf("weights for %d modules sum to %d, want 100", len(modules), sum)
		}
	}
}

func TestBuildMarkingSchemeIsDeterministic(t *testing.T) {
	modules := []ModuleInput{
		{Title: "A", Hours: 33}, {Title: "B", Hours: 33}, {Title: "C", Hours: 34},
	}
	first := BuildMarkingScheme(modules)
	second := BuildMarkingScheme(modules)
	for i := range first.ModuleWeights {
		if first.ModuleWeights[i] != second.ModuleWeights[i] {
			t.Fatalf("non-deterministic weights: %v vs %v", first.ModuleWeights, second.ModuleWeights)
		}
	}
}
