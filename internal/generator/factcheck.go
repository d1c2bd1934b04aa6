package generator

import (
	"regexp"
	"strings"

	"github.com/hmorsi/coursewright/internal/retrieval"
)

var citationMarker = regexp.MustCompile(`\[\d+\]`)

const (
	minClaimLength   = 20
	supportThreshold = 0.5
	accurateScore    = 80
)

// FactIssue flags one claim that the source material does not support.
type FactIssue struct {
	Claim    string `json:"claim"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
}

// FactCheckResult is the outcome of checking generated text against its
// retrieval contexts.
type FactCheckResult struct {
	IsAccurate   bool        `json:"is_accurate"`
	Issues       []FactIssue `json:"issues,omitempty"`
	OverallScore int         `json:"overall_score"`
}

// factCheck scores how well each sentence-level claim in content is covered
// by at least one retrieved context. A claim counts as supported when more
// than half of its significant words appear in a single context. Content
// with no checkable claims scores 100.
func factCheck(content string, contexts []retrieval.Context) FactCheckResult {
	claims := splitClaims(content)
	if len(claims) == 0 {
		return FactCheckResult{IsAccurate: true, OverallScore: 100}
	}

	lowered := make([]string, len(contexts))
	for i, c := range contexts {
		lowered[i] = strings.ToLower(c.Content)
	}

	var issues []FactIssue
	supported := 0
	for _, claim := range claims {
		words := significantWords(claim)
		if len(words) == 0 {
			supported++
			continue
		}
		best := 0.0
		for _, text := range lowered {
			hits := 0
			for _, w := range words {
				if strings.Contains(text, w) {
					hits++
				}
			}
			if ratio := float64(hits) / float64(len(words)); ratio > best {
				best = ratio
			}
		}
		if best > supportThreshold {
			supported++
			continue
		}
		severity := "medium"
		if best < 0.2 {
			severity = "high"
		}
		issues = append(issues, FactIssue{
			Claim:    claim,
			Issue:    "not supported by the source material",
			Severity: severity,
		})
	}

	score := supported * 100 / len(claims)
	return FactCheckResult{
		IsAccurate:   score >= accurateScore,
		Issues:       issues,
		OverallScore: score,
	}
}

// splitClaims breaks content into sentence-level claims worth checking.
// Headings, list markers, questions, citation markers, and short fragments
// are skipped.
func splitClaims(content string) []string {
	var claims []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#*->0123456789. ")
		line = citationMarker.ReplaceAllString(line, "")
		start := 0
		for i, r := range line {
			if r != '.' && r != '!' && r != '?' {
				continue
			}
			sentence := strings.TrimSpace(line[start:i])
			if r != '?' && len(sentence) >= minClaimLength {
				claims = append(claims, sentence)
			}
			start = i + 1
		}
		if tail := strings.TrimSpace(line[start:]); len(tail) >= minClaimLength {
			claims = append(claims, tail)
		}
	}
	return claims
}

// significantWords lowercases the claim and keeps words longer than three
// characters, which drops articles and most connectives.
func significantWords(claim string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(claim)) {
		w = strings.Trim(w, ".,;:()[]\"'")
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}
