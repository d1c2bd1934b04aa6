package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// StreamHandler receives one content chunk at a time. It is invoked
// synchronously; a slow handler slows the stream.
type StreamHandler func(chunk string)

// StreamingProvider is implemented by providers that can deliver the
// response incrementally. The returned response carries the full
// accumulated content.
type StreamingProvider interface {
	Provider
	CompleteStream(ctx context.Context, req CompletionRequest, onChunk StreamHandler) (*CompletionResponse, error)
}

// CompleteStream streams from p when it supports streaming, otherwise runs a
// blocking completion and emits the whole content as a single chunk. Either
// way the handler sees every byte of content before this returns.
func CompleteStream(ctx context.Context, p Provider, req CompletionRequest, onChunk StreamHandler) (*CompletionResponse, error) {
	if sp, ok := p.(StreamingProvider); ok {
		return sp.CompleteStream(ctx, req, onChunk)
	}
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if onChunk != nil && resp.Content != "" {
		onChunk(resp.Content)
	}
	return resp, nil
}
