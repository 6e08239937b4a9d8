package model

// Supported narrator API providers
const (
	ProviderOpenAI      = "openai"
	ProviderLocalOpenAI = "local_openai"
	ProviderGemini      = "gemini"
	ProviderClaude      = "claude"
)

// AIConfig is one user-defined narrator backend. A session may pin one of
// its owner's configs; otherwise the global default applies.
type AIConfig struct {
	ID         int64  `bson:"_id" json:"id"`
	UserID     int64  `bson:"user_id" json:"-"`
	ConfigName string `bson:"config_name" json:"config_name"`
	APIType    string `bson:"api_type" json:"api_type"`
	APIKey     string `bson:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL    string `bson:"base_url,omitempty" json:"base_url,omitempty"`
	ModelName  string `bson:"model_name,omitempty" json:"model_name,omitempty"`
}

// AIConfigRequest creates or updates an AI config
type AIConfigRequest struct {
	ConfigName string `json:"config_name"`
	APIType    string `json:"api_type"`
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	ModelName  string `json:"model_name"`
}
