package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	ChatProvider     string `yaml:"chat_provider"` // "telegram" or "slack"
	TelegramBotToken string `yaml:"telegram_bot_token"`
	SlackBotToken    string `yaml:"slack_bot_token"`

	TrackerAPIURL     string `yaml:"tracker_api_url"`
	TrackerWebURL     string `yaml:"tracker_web_url"`
	TrackerToken      string `yaml:"tracker_token"`
	TrackerOrgID      string `yaml:"tracker_org_id"`
	TrackerCloudOrgID string `yaml:"tracker_cloud_org_id"`

	LLMProvider       string `yaml:"llm_provider"` // "anthropic", "ollama", or "none"
	LLMModel          string `yaml:"llm_model"`
	LLMTimeoutSeconds int    `yaml:"llm_timeout_seconds"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	OllamaBaseURL     string `yaml:"ollama_base_url"`

	DBPath string `yaml:"db_path"`

	DefaultDigestTime    string `yaml:"default_digest_time"`    // HH:MM, UTC
	DefaultLookbackHours int    `yaml:"default_lookback_hours"` // first-digest window

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ChatProvider, "CHAT_PROVIDER")
	envOverride(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.TrackerAPIURL, "TRACKER_API_URL")
	envOverride(&cfg.TrackerWebURL, "TRACKER_WEB_URL")
	envOverride(&cfg.TrackerToken, "TRACKER_TOKEN")
	envOverride(&cfg.TrackerOrgID, "TRACKER_ORG_ID")
	envOverride(&cfg.TrackerCloudOrgID, "TRACKER_CLOUD_ORG_ID")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OllamaBaseURL, "OLLAMA_BASE_URL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DefaultDigestTime, "DEFAULT_DIGEST_TIME")
	envOverrideInt(&cfg.DefaultLookbackHours, "DEFAULT_LOOKBACK_HOURS")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	ApplyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	return cfg
}

// ApplyDefaults fills in every optional field that was left unset.
func ApplyDefaults(cfg *Config) {
	if cfg.ChatProvider == "" {
		cfg.ChatProvider = "telegram"
	}
	if cfg.TrackerAPIURL == "" {
		cfg.TrackerAPIURL = "https://api.tracker.yandex.net"
	}
	if cfg.TrackerWebURL == "" {
		cfg.TrackerWebURL = "https://tracker.yandex.ru"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "ollama"
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = 30
	}
	if cfg.OllamaBaseURL == "" {
		cfg.OllamaBaseURL = "http://localhost:11434"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./digestbot.db"
	}
	if cfg.DefaultDigestTime == "" {
		cfg.DefaultDigestTime = "09:00"
	}
	if cfg.DefaultLookbackHours == 0 {
		cfg.DefaultLookbackHours = 24
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg Config) error {
	switch cfg.ChatProvider {
	case "telegram":
		if cfg.TelegramBotToken == "" {
			return fmt.Errorf("telegram_bot_token is required when chat_provider=telegram")
		}
	case "slack":
		if cfg.SlackBotToken == "" {
			return fmt.Errorf("slack_bot_token is required when chat_provider=slack")
		}
	default:
		return fmt.Errorf("chat_provider must be 'telegram' or 'slack', got '%s'", cfg.ChatProvider)
	}

	if cfg.TrackerToken == "" {
		return fmt.Errorf("tracker_token is required")
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "ollama", "none":
	default:
		return fmt.Errorf("llm_provider must be 'anthropic', 'ollama' or 'none', got '%s'", cfg.LLMProvider)
	}

	if _, _, err := ParseClock(cfg.DefaultDigestTime); err != nil {
		return fmt.Errorf("invalid default_digest_time '%s': %v", cfg.DefaultDigestTime, err)
	}
	if cfg.DefaultLookbackHours < 1 {
		return fmt.Errorf("invalid default_lookback_hours '%d': must be >= 1", cfg.DefaultLookbackHours)
	}
	if cfg.LLMTimeoutSeconds < 1 {
		return fmt.Errorf("invalid llm_timeout_seconds '%d': must be >= 1", cfg.LLMTimeoutSeconds)
	}
	return nil
}

// ParseClock parses a 24-hour HH:MM string.
func ParseClock(s string) (int, int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
