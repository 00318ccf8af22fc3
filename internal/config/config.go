package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Backend BackendConfig `json:"backend"`
	Enhance EnhanceConfig `json:"enhance"`
	Store   StoreConfig   `json:"store"`
	Viewer  ViewerConfig  `json:"viewer"`
	Output  OutputConfig  `json:"output"`
}

// BackendConfig selects and tunes the AI backend
type BackendConfig struct {
	Provider          string  `json:"provider"`            // "gemini", "ollama", or "llamacpp"
	GeminiKeyEnv      string  `json:"gemini_key_env"`      // env var holding the API key
	GeminiModel       string  `json:"gemini_model"`        // analysis model
	GeminiEnhanceModel string `json:"gemini_enhance_model"`
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 disables throttling
	OllamaURL         string  `json:"ollama_url"`
	OllamaModel       string  `json:"ollama_model"`
	LlamaCppURL       string  `json:"llamacpp_url"`
	LlamaCppModel     string  `json:"llamacpp_model"` // empty uses the server's loaded model
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

// EnhanceConfig holds configuration for the enhancement stage
type EnhanceConfig struct {
	Mode    string `json:"mode"` // "backend", "local", or "off"
	Quality int    `json:"quality"`
}

// StoreConfig holds configuration for persistence
type StoreConfig struct {
	DatabaseURL string `json:"database_url"` // empty selects the in-memory store
	UserID      string `json:"user_id"`
}

// ViewerConfig holds configuration for the annotation viewer
type ViewerConfig struct {
	Mode string `json:"mode"` // "outline", "heatmap", or "combined"
}

// OutputConfig holds configuration for export generation
type OutputConfig struct {
	OutputDir string `json:"output_dir"`
	Suffix    string `json:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider:           "gemini",
			GeminiKeyEnv:       "GEMINI_API_KEY",
			GeminiModel:        "gemini-2.0-flash",
			GeminiEnhanceModel: "gemini-2.0-flash-preview-image-generation",
			RequestsPerSecond:  2,
			OllamaURL:          "http://localhost:11434",
			OllamaModel:        "llava",
			LlamaCppURL:        "http://localhost:8080",
			LlamaCppModel:      "",
			TimeoutSeconds:     120,
		},
		Enhance: EnhanceConfig{
			Mode:    "backend",
			Quality: 92,
		},
		Store: StoreConfig{
			DatabaseURL: "",
			UserID:      "local",
		},
		Viewer: ViewerConfig{
			Mode: "combined",
		},
		Output: OutputConfig{
			OutputDir: "./exports",
			Suffix:    "-annotated",
		},
	}
}

// APIKey resolves the Gemini API key from the configured environment variable
func (b BackendConfig) APIKey() string {
	if b.GeminiKeyEnv == "" {
		return ""
	}
	return os.Getenv(b.GeminiKeyEnv)
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case "gemini", "ollama", "llamacpp":
	default:
		return fmt.Errorf("backend.provider must be \"gemini\", \"ollama\", or \"llamacpp\"")
	}

	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("backend.timeout_seconds must be positive")
	}

	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("backend.requests_per_second cannot be negative")
	}

	switch c.Enhance.Mode {
	case "backend", "local", "off":
	default:
		return fmt.Errorf("enhance.mode must be \"backend\", \"local\", or \"off\"")
	}

	if c.Enhance.Quality < 1 || c.Enhance.Quality > 100 {
		return fmt.Errorf("enhance.quality must be between 1 and 100")
	}

	switch c.Viewer.Mode {
	case "outline", "heatmap", "combined":
	default:
		return fmt.Errorf("viewer.mode must be \"outline\", \"heatmap\", or \"combined\"")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "medscan", "config.json")
}
