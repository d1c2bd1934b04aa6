package generator

import (
	"strings"
	"testing"

	"github.com/hmorsi/coursewright/internal/retrieval"
)

func ctxWith(content string) retrieval.Context {
	return retrieval.Context{
		SourceID:   "src-1",
		Content:    content,
		Similarity: 0.9,
		Metadata:   retrieval.SourceMetadata{Title: "Handbook"},
	}
}

func TestFactCheckEmptyContentScoresFull(t *testing.T) {
	res := factCheck("", nil)
	if res.OverallScore != 100 {
		t.Errorf("score = %d, want 100", res.OverallScore)
	}
	if !res.IsAccurate {
		t.Error("empty content should be accurate")
	}
}

func TestFactCheckSupportedClaim(t *testing.T) {
	contexts := []retrieval.Context{ctxWith(
		"Electrical apprentices must complete supervised workplace hours before certification.",
	)}
	res := factCheck(
		"Apprentices complete supervised workplace hours before their certification is issued.",
		contexts,
	)
	if !res.IsAccurate {
		t.Errorf("supported claim flagged inaccurate, score %d, issues %v", res.OverallScore, res.Issues)
	}
}

func TestFactCheckUnsupportedClaimFlagged(t *testing.T) {
	contexts := []retrieval.Context{ctxWith(
		"Electrical apprentices must complete supervised workplace hours.",
	)}
	res := factCheck(
		"Quantum entanglement dramatically improves culinary photosynthesis outcomes worldwide.",
		contexts,
	)
	if res.OverallScore >= 100 {
		t.Errorf("fabricated claim should lower the score, got %d", res.OverallScore)
	}
	if len(res.Issues) == 0 {
		t.Fatal("expected at least one issue")
	}
	if res.Issues[0].Severity != "high" {
		t.Errorf("severity = %q, want high for zero overlap", res.Issues[0].Severity)
	}
}

func TestFactCheckNoContextsPenalizesClaims(t *testing.T) {
	res := factCheck("This substantive sentence makes a checkable factual claim about regulation.", nil)
	if res.OverallScore >= 100 {
		t.Errorf("claims without any contexts should score below 100, got %d", res.OverallScore)
	}
}

func TestSplitClaimsSkipsHeadingsAndFragments(t *testing.T) {
	content := "## Overview\n\n- topic\n\nThis is a full sentence long enough to count as a claim."
	claims := splitClaims(content)
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1: %v", len(claims), claims)
	}
}

func TestSplitClaimsDropsQuestions(t *testing.T) {
	content := "What prior experience should applicants already have before enrolling? Applicants need supervised workplace experience before enrolling."
	claims := splitClaims(content)
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1: %v", len(claims), claims)
	}
	if claims[0] != "Applicants need supervised workplace experience before enrolling" {
		t.Errorf("kept claim = %q", claims[0])
	}
}

func TestSplitClaimsStripsCitationMarkers(t *testing.T) {
	claims := splitClaims("Safety procedures follow the national wiring regulations [3].")
	if len(claims) != 1 {
		t.Fatalf("claims = %d, want 1: %v", len(claims), claims)
	}
	if strings.Contains(claims[0], "[3]") {
		t.Errorf("citation marker survived: %q", claims[0])
	}
}

func TestAttributeSourcesCitedMarkers(t *testing.T) {
	contexts := []retrieval.Context{
		{SourceID: "a", Metadata: retrieval.SourceMetadata{Title: "A"}},
		{SourceID: "b", Metadata: retrieval.SourceMetadata{Title: "B"}},
	}
	citations, used := attributeSources("As noted [2], safety comes first.", contexts)
	if len(citations) != 1 || citations[0].SourceID != "b" {
		t.Fatalf("citations = %+v, want single cite of b", citations)
	}
	if len(used) != 1 || used[0] != "b" {
		t.Errorf("used = %v, want [b]", used)
	}
}

func TestAttributeSourcesOrderedByAppearance(t *testing.T) {
	contexts := []retrieval.Context{
		{SourceID: "src-a", Metadata: retrieval.SourceMetadata{Title: "A"}},
		{SourceID: "src-b", Metadata: retrieval.SourceMetadata{Title: "B"}},
	}
	citations, used := attributeSources(
		"As shown in [2], induction hours matter. Later, [1] covers wiring safety.",
		contexts,
	)
	if len(citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(citations))
	}
	if citations[0].SourceID != "src-b" || citations[1].SourceID != "src-a" {
		t.Errorf("citations = %+v, want src-b before src-a", citations)
	}
	if citations[0].Position > citations[1].Position {
		t.Errorf("positions out of order: %+v", citations)
	}
	if len(used) != 2 || used[0] != "src-b" || used[1] != "src-a" {
		t.Errorf("used = %v, want [src-b src-a]", used)
	}
}

func TestAttributeSourcesNoMarkersUsesAll(t *testing.T) {
	contexts := []retrieval.Context{
		{SourceID: "a"}, {SourceID: "b"},
	}
	citations, used := attributeSources("No explicit markers here.", contexts)
	if len(citations) != 0 {
		t.Errorf("citations = %+v, want none", citations)
	}
	if len(used) != 2 {
		t.Errorf("used = %v, want both sources", used)
	}
}
