// Package modeljson recovers well-typed values from raw LLM output.
//
// Models are asked for JSON but routinely return it wrapped in markdown
// fences, with trailing commas, with raw newlines inside string literals, or
// double-encoded as a JSON string inside JSON. Parse applies a fixed ladder
// of recovery strategies; Normalize then coerces the parsed value into the
// shape declared for its generation context.
package modeljson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// previewLimit bounds how much raw model output a ParseError may carry, so a
// multi-kilobyte response never ends up verbatim in logs.
const previewLimit = 160

// ParseError reports that no recovery strategy produced valid JSON. It keeps
// only the length and a truncated preview of the raw text.
type ParseError struct {
	Context string
	RawLen  int
	Preview string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("modeljson: unparseable %s output (%d bytes): %q", e.Context, e.RawLen, e.Preview)
}

func newParseError(raw string, genCtx GenContext) *ParseError {
	preview := raw
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	return &ParseError{Context: string(genCtx), RawLen: len(raw), Preview: preview}
}

// Parse attempts to recover a JSON value from raw model output. Strategies
// are tried in order and the first success wins:
//
//  1. direct parse of the whole string
//  2. contents of the first fenced code block
//  3. syntactic repair (trailing commas, missing commas, embedded newlines)
//  4. greedy extraction of balanced brace blocks, longest first
//
// The returned error, if any, is always a *ParseError.
func Parse(raw string, genCtx GenContext) (any, error) {
	trimmed := strings.TrimSpace(raw)

	if v, ok := tryUnmarshal(trimmed); ok {
		return v, nil
	}

	if fenced, ok := extractFenced(trimmed); ok {
		if v, ok := tryUnmarshal(fenced); ok {
			return v, nil
		}
		// A fenced block is the model's strongest signal of where the
		// payload lives, so repair it too before moving on.
		if v, ok := tryUnmarshal(repairSyntax(fenced)); ok {
			return v, nil
		}
	}

	if v, ok := tryUnmarshal(repairSyntax(trimmed)); ok {
		return v, nil
	}

	for _, candidate := range balancedBlocks(trimmed) {
		if v, ok := tryUnmarshal(candidate); ok {
			return v, nil
		}
		if v, ok := tryUnmarshal(repairSyntax(candidate)); ok {
			return v, nil
		}
	}

	return nil, newParseError(raw, genCtx)
}

func tryUnmarshal(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// extractFenced returns the contents of the first triple-backtick block,
// tolerating an optional language tag after the opening fence.
func extractFenced(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]

	// Skip a language tag such as ```json.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{[\"") {
			rest = rest[nl+1:]
		}
	}

	closing := strings.Index(rest, "```")
	if closing < 0 {
		// Truncated output often loses the closing fence; take what is there.
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:closing]), true
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	missingCommaRe  = regexp.MustCompile(`([}\]])\s*([{\[])`)
)

// repairSyntax fixes the malformations models most commonly produce:
// trailing commas before a closing bracket, missing commas between adjacent
// object/array literals, and raw newlines (which are illegal inside JSON
// string literals and harmless as whitespace elsewhere).
func repairSyntax(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", " ")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = missingCommaRe.ReplaceAllString(s, "$1,$2")
	return strings.TrimSpace(s)
}

// balancedBlocks finds all top-level balanced {...} substrings, longest
// first. String literals and escapes are honored so braces inside strings do
// not confuse the depth count.
func balancedBlocks(s string) []string {
	var blocks []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case c == '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					blocks = append(blocks, s[start:i+1])
					start = -1
				}
			}
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return len(blocks[i]) > len(blocks[j]) })
	return blocks
}
