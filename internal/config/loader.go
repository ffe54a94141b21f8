package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"jarvis/internal/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultPersona []byte

// Config holds all configuration for the assistant
type Config struct {
	Log       logger.Config
	LLM       LLMConfig
	Store     StoreConfig
	Audio     AudioConfig
	Assistant AssistantConfig
	Metrics   MetricsConfig
	Persona   Persona `ignored:"true"`
}

// LLMConfig selects and configures the remote model provider
type LLMConfig struct {
	Provider   string `envconfig:"PROVIDER" default:"gemini"` // gemini, openai, ollama, deepseek, ark
	APIKey     string `envconfig:"API_KEY"`
	BaseURL    string `envconfig:"BASE_URL"`
	TextModel  string `envconfig:"TEXT_MODEL" default:"gemini-3.1-pro-preview"`
	ImageModel string `envconfig:"IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	TTSModel   string `envconfig:"TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	Search     bool   `envconfig:"SEARCH" default:"true"`
	// MediaAPIKey is used for image and speech when the text provider is not gemini
	MediaAPIKey string `envconfig:"MEDIA_API_KEY"`
}

// StoreConfig selects the persisted collaborators
type StoreConfig struct {
	Backend    string `envconfig:"BACKEND" default:"sqlite"` // sqlite, redis
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/jarvis.db"`
	RedisURL   string `envconfig:"REDIS_URL"`
}

// AudioConfig controls the device backend
type AudioConfig struct {
	Backend           string `envconfig:"BACKEND" default:"malgo"` // malgo, none
	CaptureSampleRate int    `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`
	MaxRecordSeconds  int    `envconfig:"MAX_RECORD_SECONDS" default:"30"`
}

// AssistantConfig holds user-facing behaviour switches
type AssistantConfig struct {
	VoiceEnabled       bool   `envconfig:"VOICE" default:"true"`
	ReasoningEnabled   bool   `envconfig:"REASONING" default:"true"`
	ForceOffline       bool   `envconfig:"OFFLINE" default:"false"`
	ProbeAddr          string `envconfig:"PROBE_ADDR" default:"generativelanguage.googleapis.com:443"`
	MaxTrackedCommands int    `envconfig:"MAX_TRACKED_COMMANDS" default:"0"` // 0 = unbounded
	HistoryTurns       int    `envconfig:"HISTORY_TURNS" default:"0"`        // 0 = whole transcript
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Addr string `envconfig:"ADDR"`
}

// Persona is the YAML-defined voice of the assistant
type Persona struct {
	Name     string            `yaml:"name"`
	Language string            `yaml:"language"`
	Region   string            `yaml:"region"`
	Voice    string            `yaml:"voice"`
	Keywords Keywords          `yaml:"keywords"`
	Tones    map[string]string `yaml:"tones"`
	Offline  OfflineReplies    `yaml:"offline"`
	Greeting Greeting          `yaml:"greeting"`
}

// Keywords are the analyzer's category word lists
type Keywords struct {
	Urgency     []string `yaml:"urgency"`
	Analytical  []string `yaml:"analytical"`
	Social      []string `yaml:"social"`
	Engineering []string `yaml:"engineering"`
}

// OfflineReplies are the canned answers used without connectivity
type OfflineReplies struct {
	TaskKeywords []string `yaml:"task_keywords"`
	TimeKeywords []string `yaml:"time_keywords"`
	TaskReply    string   `yaml:"task_reply"`
	TimeReply    string   `yaml:"time_reply"` // %s is the local time
	DefaultReply string   `yaml:"default_reply"`
}

// Greeting seeds a fresh transcript
type Greeting struct {
	System string `yaml:"system"`
	Model  string `yaml:"model"`
}

// Load reads .env (optional), the JARVIS_* environment and the persona file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var config Config
	if err := envconfig.Process("jarvis", &config); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	// GEMINI_API_KEY is the conventional name for the Gemini SDK
	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if config.LLM.MediaAPIKey == "" {
		config.LLM.MediaAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	persona, err := LoadPersona(os.Getenv("JARVIS_PERSONA_FILE"))
	if err != nil {
		return nil, err
	}
	config.Persona = *persona

	return &config, nil
}

// LoadPersona parses the persona at path over the embedded defaults.
// An empty path returns the defaults.
func LoadPersona(path string) (*Persona, error) {
	var persona Persona
	if err := yaml.Unmarshal(defaultPersona, &persona); err != nil {
		return nil, fmt.Errorf("error parsing default persona: %w", err)
	}
	if path == "" {
		return &persona, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading persona file: %w", err)
	}
	if err := yaml.Unmarshal(data, &persona); err != nil {
		return nil, fmt.Errorf("error parsing persona YAML: %w", err)
	}
	return &persona, nil
}

// DefaultPersona returns the embedded persona, panicking if it is malformed
func DefaultPersona() Persona {
	persona, err := LoadPersona("")
	if err != nil {
		panic(err)
	}
	return *persona
}
