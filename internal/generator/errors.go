package generator

import "fmt"

// TemplateNotFoundError means a caller asked for an unregistered prompt
// template. This is a programmer or configuration error and is never
// retried.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template %q not found", e.Name)
}

// NoSourcesError means retrieval produced no grounding contexts, even at
// the relaxed threshold. Generation without any source is disallowed;
// callers that can degrade should use GenerateWithFallback.
type NoSourcesError struct {
	Query string
}

func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("no grounding sources found for query %q", e.Query)
}

// RetrievalError wraps a transient failure of the retrieval backend.
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed for query %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// LLMCallError wraps a transient failure of the LLM backend.
type LLMCallError struct {
	Template string
	Err      error
}

func (e *LLMCallError) Error() string {
	return fmt.Sprintf("llm call failed for template %q: %v", e.Template, e.Err)
}

func (e *LLMCallError) Unwrap() error { return e.Err }
