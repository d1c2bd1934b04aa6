package modeljson

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseDirect(t *testing.T) {
	v, err := Parse(`{"week": 1, "topics": ["intro"]}`, ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", v)
	}
	if obj["week"] != float64(1) {
		t.Errorf("expected week=1, got %v", obj["week"])
	}
}

func TestParseFencedBlock(t *testing.T) {
	cases := []string{
		"Here is the plan:\n```json\n{\"week\": 2}\n```\nHope that helps!",
		"```\n{\"week\": 2}\n```",
		"```json\n{\"week\": 2}",
	}
	for _, raw := range cases {
		v, err := Parse(raw, ContextWeeklyPlan)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		obj := v.(map[string]any)
		if obj["week"] != float64(2) {
			t.Errorf("Parse(%q): expected week=2, got %v", raw, obj["week"])
		}
	}
}

func TestParseRepairsTrailingCommas(t *testing.T) {
	v, err := Parse(`{"topics": ["a", "b",], "week": 3,}`, ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := v.(map[string]any)
	if obj["week"] != float64(3) {
		t.Errorf("expected week=3, got %v", obj["week"])
	}
}

func TestParseRepairsMissingCommas(t *testing.T) {
	v, err := Parse(`[{"a": 1} {"b": 2}]`, ContextSlideDeck)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seq, ok := v.([]any)
	if !ok || len(seq) != 2 {
		t.Fatalf("expected 2-element array, got %#v", v)
	}
}

func TestParseRepairsEmbeddedNewlines(t *testing.T) {
	v, err := Parse("{\"summary\": \"line one\nline two\"}", ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := v.(map[string]any)
	if obj["summary"] != "line one line two" {
		t.Errorf("expected collapsed newline, got %q", obj["summary"])
	}
}

func TestParseGreedyExtraction(t *testing.T) {
	raw := `The model also said {"partial": true and then, properly: {"question": "What is risk?", "options": ["a", "b"]} trailing prose.`
	v, err := Parse(raw, ContextAssessmentItem)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := v.(map[string]any)
	if obj["question"] != "What is risk?" {
		t.Errorf("expected extracted object, got %#v", obj)
	}
}

// Recoverable malformations must yield the same logical value as the
// canonical well-formed input.
func TestParseEquivalenceWithCanonical(t *testing.T) {
	canonical := `{"week": 4, "topics": ["negotiation", "conflict"]}`
	want, err := Parse(canonical, ContextWeeklyPlan)
	if err != nil {
		t.Fatalf("canonical parse: %v", err)
	}

	variants := []string{
		"```json\n" + canonical + "\n```",
		`{"week": 4, "topics": ["negotiation", "conflict",],}`,
		"Sure! Here you go: " + canonical,
	}
	for _, raw := range variants {
		got, err := Parse(raw, ContextWeeklyPlan)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Parse(%q) = %#v, want %#v", raw, got, want)
		}
	}
}

func TestParseFailureReturnsParseError(t *testing.T) {
	long := strings.Repeat("not json at all ", 100)
	_, err := Parse(long, ContextRubric)
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.RawLen != len(long) {
		t.Errorf("RawLen = %d, want %d", pe.RawLen, len(long))
	}
	if len(pe.Preview) > previewLimit+3 {
		t.Errorf("preview too long: %d bytes", len(pe.Preview))
	}
	if pe.Context != string(ContextRubric) {
		t.Errorf("Context = %q", pe.Context)
	}
}

func TestBalancedBlocksIgnoresBracesInStrings(t *testing.T) {
	blocks := balancedBlocks(`{"text": "a } brace"} {"n": 1}`)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %v", len(blocks), blocks)
	}
	// Longest first.
	if !strings.Contains(blocks[0], "brace") {
		t.Errorf("expected longest block first, got %q", blocks[0])
	}
}
