package modeljson

import (
	"encoding/json"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestNormalizeCoercesDeclaredFields(t *testing.T) {
	in := map[string]any{
		"week":       "Week 3",
		"topics":     "single topic",
		"activities": []any{"role play"},
		"summary":    map[string]any{"focus": "closing deals", "tone": "practical"},
		"extra":      "untouched",
	}
	out := Normalize(in, ContextWeeklyPlan)

	if out["week"] != 3 {
		t.Errorf("week = %v, want 3", out["week"])
	}
	if got := out["topics"].([]any); len(got) != 1 || got[0] != "single topic" {
		t.Errorf("topics = %#v", out["topics"])
	}
	if got := out["activities"].([]any); len(got) != 1 {
		t.Errorf("activities = %#v", out["activities"])
	}
	// Object flattened to "key: value" lines, keys sorted.
	if out["summary"] != "focus: closing deals\ntone: practical" {
		t.Errorf("summary = %q", out["summary"])
	}
	if out["extra"] != "untouched" {
		t.Errorf("undeclared field changed: %v", out["extra"])
	}
}

func TestNormalizeDoubleStringifiedSequence(t *testing.T) {
	in := map[string]any{"options": `["a", "b", "c"]`}
	out := Normalize(in, ContextAssessmentItem)
	opts := out["options"].([]any)
	if len(opts) != 3 || opts[0] != "a" {
		t.Errorf("options = %#v", opts)
	}
}

func TestNormalizeDoubleStringifiedObject(t *testing.T) {
	// A string containing a string containing JSON.
	inner := `{\"question\": \"Why?\", \"options\": [\"x\"]}`
	raw := `"` + inner + `"`
	out := Normalize(raw, ContextAssessmentItem)
	if out["question"] != "Why?" {
		t.Errorf("question = %q", out["question"])
	}
}

func TestNormalizeMismatchSubstitutesDefaults(t *testing.T) {
	out := Normalize("complete garbage", ContextAssessmentItem)
	if out["question"] != "" {
		t.Errorf("question default = %v", out["question"])
	}
	if got := out["options"].([]any); len(got) != 0 {
		t.Errorf("options default = %#v", got)
	}
	if out["correct_index"] != 0 {
		t.Errorf("correct_index default = %v", out["correct_index"])
	}
}

func TestNormalizeUnwrapDepthIsBounded(t *testing.T) {
	// Adversarially nested stringification must terminate.
	s := `1`
	for i := 0; i < 10; i++ {
		b, _ := json.Marshal(s)
		s = string(b)
	}
	out := Normalize(map[string]any{"week": s}, ContextWeeklyPlan)
	if _, ok := out["week"].(int); !ok {
		t.Errorf("week = %T(%v), want int", out["week"], out["week"])
	}
}

func TestExtractFirstInteger(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{float64(7), 7},
		{"Week 3", 3},
		{"12 units over 4 weeks", 12},
		{"no digits", 0},
		{nil, 0},
		{true, 0},
		{42, 42},
	}
	for _, c := range cases {
		if got := ExtractFirstInteger(c.in); got != c.want {
			t.Errorf("ExtractFirstInteger(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := map[string]any{
		"week":   "Week 5",
		"topics": `["a"]`,
	}
	once := Normalize(in, ContextWeeklyPlan)
	twice := Normalize(any(once), ContextWeeklyPlan)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

// Property: normalize(normalize(x)) == normalize(x) for arbitrary inputs.
func TestNormalizeIdempotentProperty(t *testing.T) {
	contexts := []GenContext{
		ContextWeeklyPlan, ContextCaseStudy, ContextSimulation,
		ContextAssessmentItem, ContextRubric, ContextSlideDeck,
	}
	rapid.Check(t, func(t *rapid.T) {
		genCtx := rapid.SampledFrom(contexts).Draw(t, "ctx")
		obj := map[string]any{}
		n := rapid.IntRange(0, 6).Draw(t, "fields")
		for i := 0; i < n; i++ {
			key := rapid.StringMatching(`[a-z_]{1,12}`).Draw(t, "key")
			switch rapid.IntRange(0, 3).Draw(t, "kind") {
			case 0:
				obj[key] = rapid.String().Draw(t, "str")
			case 1:
				obj[key] = rapid.Float64Range(-1e6, 1e6).Draw(t, "num")
			case 2:
				obj[key] = []any{rapid.String().Draw(t, "elem")}
			default:
				obj[key] = nil
			}
		}
		once := Normalize(any(obj), genCtx)
		twice := Normalize(any(once), genCtx)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent for %s:\nonce:  %#v\ntwice: %#v", genCtx, once, twice)
		}
	})
}
