package model

import "time"

// ================ Config ================
type GenerationConfig struct {
	Provider    string        `envconfig:"GENERATION_PROVIDER" default:"gemini"`
	Model       string        `envconfig:"GENERATION_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"GENERATION_MAX_TOKENS" default:"1000"`
	Temperature float32       `envconfig:"GENERATION_TEMPERATURE" default:"0.4"`
	Timeout     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

type PersonaConfig struct {
	DefaultPerson     string   `envconfig:"DEFAULT_PERSON" default:"Charles"`
	Aliases           []string `envconfig:"PERSON_ALIASES" default:"charlie,chaz,charles o'brien,charles obrien,charles o brien"`
	PromptTemplate    string   `envconfig:"SYSTEM_PROMPT_TEMPLATE"`
	DefaultVoiceStyle string   `envconfig:"DEFAULT_VOICE_STYLE" default:"normal"`
}

type KnowledgeConfig struct {
	BaseID    string        `envconfig:"KNOWLEDGE_BASE_ID"`
	Endpoint  string        `envconfig:"KNOWLEDGE_ENDPOINT"`
	Timeout   time.Duration `envconfig:"KNOWLEDGE_TIMEOUT" default:"5s"`
	Summarize bool          `envconfig:"KNOWLEDGE_SUMMARIZE" default:"false"`
	MaxTokens int           `envconfig:"KNOWLEDGE_MAX_TOKENS" default:"400"`
	CacheTTL  time.Duration `envconfig:"KNOWLEDGE_CACHE_TTL" default:"10m"`
}

// Enabled reports whether retrieval should be attempted at all.
func (c KnowledgeConfig) Enabled() bool {
	return c.BaseID != "" && c.Endpoint != ""
}

type RecognizerConfig struct {
	Endpoint string        `envconfig:"RECOGNIZER_ENDPOINT"`
	Timeout  time.Duration `envconfig:"RECOGNIZER_TIMEOUT" default:"5s"`
}
