package config

import (
	"os"
	"strings"
)

// AIConfig is the global default narrator backend, used whenever a session
// has no user-selected config.
type AIConfig struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"-"` // Never serialize
	BaseURL   string `json:"base_url"`
	ModelName string `json:"model_name"`
	TimeoutMS int    `json:"timeout_ms"`
}

// DefaultAIConfig reads the global narrator configuration. The API key and
// base URL env names follow the provider, e.g. OPENAI_API_KEY or
// LOCAL_OPENAI_API_BASE_URL.
func DefaultAIConfig() *AIConfig {
	provider := strings.ToLower(getEnv("AI_PROVIDER", "local_openai"))
	prefix := strings.ToUpper(provider)
	return &AIConfig{
		Provider:  provider,
		APIKey:    getEnv(prefix+"_API_KEY", "dummy-key"),
		BaseURL:   os.Getenv(prefix + "_API_BASE_URL"),
		ModelName: os.Getenv(prefix + "_MODEL_NAME"),
		TimeoutMS: 120000, // narrative generation is slow
	}
}

// IsEnabled returns true if the narrator API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}
