package embeddings

import (
	"fmt"
	"os"
)

// NewEmbedder creates an embedder for the given provider type and model.
// Supported provider types: "openai", "ollama".
func NewEmbedder(providerType, model string) (Embedder, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model)), nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		// nomic-embed-text emits 768-dimensional vectors.
		return NewOllamaEmbedder(model, 768, host), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
