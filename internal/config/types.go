package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level coursewright configuration, corresponding to
// .coursewright.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	CorpusFile        string       `yaml:"corpus_file" koanf:"corpus_file"`
	MaxConcurrency    int          `yaml:"max_concurrency" koanf:"max_concurrency"`
	CacheTTLHours     int          `yaml:"cache_ttl_hours" koanf:"cache_ttl_hours"`
	ConfidenceFloor   float64      `yaml:"confidence_floor" koanf:"confidence_floor"`
	LogLevel          string       `yaml:"log_level" koanf:"log_level"`
	LogFormat         string       `yaml:"log_format" koanf:"log_format"`
	Redis             RedisConfig  `yaml:"redis" koanf:"redis"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
}

// RedisConfig holds the optional response/embedding cache settings. An empty
// address means the in-process cache is used instead.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}
