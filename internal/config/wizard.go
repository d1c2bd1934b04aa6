package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .coursewright.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to coursewright! Let's configure your project.")
	fmt.Println()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)
	preset := GetPreset(provider)

	// 2. Model, defaulting to the provider preset.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: preset.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Knowledge-base corpus file.
	corpusPrompt := promptui.Prompt{
		Label:   "Knowledge-base corpus file (YAML)",
		Default: "corpus.yml",
	}
	corpusFile, err := corpusPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("corpus file: %w", err)
	}

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (job database and vector store)",
		Default: ".coursewright",
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 5. Optional Redis cache.
	redisPrompt := promptui.Prompt{
		Label:   "Redis address for the response cache (blank for in-process)",
		Default: "",
	}
	redisAddr, err := redisPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}

	// 6. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: "8080",
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	port, _ := strconv.Atoi(strings.TrimSpace(portStr))

	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = model
	cfg.EmbeddingProvider = embeddingProviderFor(provider)
	cfg.EmbeddingModel = preset.EmbeddingModel
	cfg.CorpusFile = corpusFile
	cfg.DataDir = dataDir
	cfg.Redis.Addr = redisAddr
	cfg.Server.Port = port

	// Check for API key.
	if envVar := APIKeyEnvVar(provider); envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running coursewright generate.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embedding endpoint, so OpenAI embeddings
// back it.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}
