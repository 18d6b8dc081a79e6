package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Backend struct {
	BaseURL            string        `yaml:"base_url" env:"LOCALLIFE_BASE_URL" env-default:"http://localhost:8000"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"LOCALLIFE_REQUEST_TIMEOUT" env-default:"120s"`
	LLMProvider        string        `yaml:"llm_provider" env:"LOCALLIFE_LLM_PROVIDER" env-default:"openai"`
	HistoryTokenBudget int           `yaml:"history_token_budget" env:"LOCALLIFE_HISTORY_TOKEN_BUDGET" env-default:"3500"`
	HistoryTokenModel  string        `yaml:"history_token_model" env-default:"gpt-3.5-turbo"`
}

type Chat struct {
	// RecencyWindow decides whether a late recommendation still belongs to
	// the active assistant message. Heuristic, tune per network conditions.
	RecencyWindow time.Duration `yaml:"recency_window" env:"LOCALLIFE_RECENCY_WINDOW" env-default:"10s"`
	TrialLimit    int           `yaml:"trial_limit" env:"LOCALLIFE_TRIAL_LIMIT" env-default:"10"`
}

type Extraction struct {
	OpenAIAPIKey  string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `yaml:"open_ai_base_url" env:"OPENAI_BASE_URL"`
	Model         string  `yaml:"extraction_model" env:"LOCALLIFE_EXTRACTION_MODEL" env-default:"gpt-3.5-turbo"`
	Temperature   float32 `yaml:"extraction_temperature" env-default:"0.1"`
}

type Storage struct {
	Driver         string `yaml:"driver" env:"LOCALLIFE_STORAGE_DRIVER" env-default:"bolt"`
	BoltPath       string `yaml:"bolt_path" env:"LOCALLIFE_BOLT_PATH" env-default:"state/locallife.bolt"`
	RedisEndpoint  string `yaml:"redis_endpoint" env:"LOCALLIFE_REDIS_ENDPOINT" env-default:"localhost:6379"`
	RedisNamespace string `yaml:"redis_namespace" env:"LOCALLIFE_REDIS_NAMESPACE" env-default:"locallife"`
}

type Logging struct {
	Dir string `yaml:"dir" env:"LOCALLIFE_LOG_DIR" env-default:"logs"`
}

type Config struct {
	Backend    Backend    `yaml:"backend"`
	Chat       Chat       `yaml:"chat"`
	Extraction Extraction `yaml:"extraction"`
	Storage    Storage    `yaml:"storage"`
	Logging    Logging    `yaml:"logging"`
}

func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
