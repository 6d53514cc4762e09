// Package config resolves the llm.Config surface from four layers, in
// increasing priority: built-in defaults, environment variables, a YAML
// config file, and constructor overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amberloop/orca/pkg/llm"
)

// FileConfig is the YAML shape a config file is decoded into. Every
// field is a pointer (or left as the empty string/zero) so Load can tell
// "absent from the file" apart from "explicitly set to the zero value".
type FileConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIService     string   `yaml:"api_service"`
	EmbedService   string   `yaml:"embed_service"`
	FimService     string   `yaml:"fim_service"`
	ModelsService  string   `yaml:"models_service"`
	BalanceService string   `yaml:"balance_service"`
	AuthService    string   `yaml:"auth_service"`
	APIKey         string   `yaml:"api_key"`
	Email          string   `yaml:"email"`
	Password       string   `yaml:"password"`
	AuthEnabled    *bool    `yaml:"auth_enabled"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      *int     `yaml:"max_tokens"`
	Timeout        *int     `yaml:"timeout"` // seconds
	Stream         *bool    `yaml:"stream"`
}

// Overrides are constructor-supplied values, the highest-priority layer.
// A zero value for any field means "not overridden" except where a
// pointer makes that explicit (AuthEnabled/Stream, which have meaningful
// false values).
type Overrides struct {
	BaseURL        string
	APIService     string
	EmbedService   string
	FimService     string
	ModelsService  string
	BalanceService string
	AuthService    string
	APIKey         string
	Email          string
	Password       string
	AuthEnabled    *bool
	Model          string
	Temperature    *float64
	MaxTokens      *int
	Timeout        *int
	Stream         *bool
}

// envKeys maps each Config field to the environment variable Load reads
// it from.
var envKeys = map[string]string{
	"base_url":        "ORCA_BASE_URL",
	"api_service":     "ORCA_API_SERVICE",
	"embed_service":   "ORCA_EMBED_SERVICE",
	"fim_service":     "ORCA_FIM_SERVICE",
	"models_service":  "ORCA_MODELS_SERVICE",
	"balance_service": "ORCA_BALANCE_SERVICE",
	"auth_service":    "ORCA_AUTH_SERVICE",
	"api_key":         "ORCA_API_KEY",
	"email":           "ORCA_EMAIL",
	"password":        "ORCA_PASSWORD",
	"auth_enabled":    "ORCA_AUTH_ENABLED",
	"model":           "ORCA_MODEL",
	"temperature":     "ORCA_TEMPERATURE",
	"max_tokens":      "ORCA_MAX_TOKENS",
	"timeout":         "ORCA_TIMEOUT",
	"stream":          "ORCA_STREAM",
}

// LoadDotEnv loads a .env file from the current directory into the
// process environment, if one exists. A missing .env is not an error:
// godotenv is purely additive here.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return nil
	}
	return godotenvLoad()
}

// Load resolves a complete llm.Config from defaults, the environment,
// an optional YAML file at path (skipped entirely when path is ""), and
// finally overrides, applied in that increasing-priority order.
func Load(path string, overrides Overrides) (llm.Config, error) {
	cfg := llm.DefaultConfig()

	applyEnv(&cfg)

	if path != "" {
		file, err := loadFile(path)
		if err != nil {
			return llm.Config{}, fmt.Errorf("config: %w", err)
		}
		applyFile(&cfg, file)
	}

	applyOverrides(&cfg, overrides)
	return cfg, nil
}

func loadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return file, nil
}

func applyEnv(cfg *llm.Config) {
	if v := os.Getenv(envKeys["base_url"]); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(envKeys["api_service"]); v != "" {
		cfg.APIService = v
	}
	if v := os.Getenv(envKeys["embed_service"]); v != "" {
		cfg.EmbedService = v
	}
	if v := os.Getenv(envKeys["fim_service"]); v != "" {
		cfg.FimService = v
	}
	if v := os.Getenv(envKeys["models_service"]); v != "" {
		cfg.ModelsService = v
	}
	if v := os.Getenv(envKeys["balance_service"]); v != "" {
		cfg.BalanceService = v
	}
	if v := os.Getenv(envKeys["auth_service"]); v != "" {
		cfg.AuthService = v
	}
	if v := os.Getenv(envKeys["api_key"]); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(envKeys["email"]); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv(envKeys["password"]); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(envKeys["auth_enabled"]); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AuthEnabled = b
		}
	}
	if v := os.Getenv(envKeys["model"]); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(envKeys["temperature"]); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv(envKeys["max_tokens"]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv(envKeys["timeout"]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv(envKeys["stream"]); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Stream = b
		}
	}
}

func applyFile(cfg *llm.Config, file FileConfig) {
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIService != "" {
		cfg.APIService = file.APIService
	}
	if file.EmbedService != "" {
		cfg.EmbedService = file.EmbedService
	}
	if file.FimService != "" {
		cfg.FimService = file.FimService
	}
	if file.ModelsService != "" {
		cfg.ModelsService = file.ModelsService
	}
	if file.BalanceService != "" {
		cfg.BalanceService = file.BalanceService
	}
	if file.AuthService != "" {
		cfg.AuthService = file.AuthService
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.Email != "" {
		cfg.Email = file.Email
	}
	if file.Password != "" {
		cfg.Password = file.Password
	}
	if file.AuthEnabled != nil {
		cfg.AuthEnabled = *file.AuthEnabled
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.Temperature != nil {
		cfg.Temperature = *file.Temperature
	}
	if file.MaxTokens != nil {
		cfg.MaxTokens = *file.MaxTokens
	}
	if file.Timeout != nil {
		cfg.Timeout = time.Duration(*file.Timeout) * time.Second
	}
	if file.Stream != nil {
		cfg.Stream = *file.Stream
	}
}

func applyOverrides(cfg *llm.Config, o Overrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.APIService != "" {
		cfg.APIService = o.APIService
	}
	if o.EmbedService != "" {
		cfg.EmbedService = o.EmbedService
	}
	if o.FimService != "" {
		cfg.FimService = o.FimService
	}
	if o.ModelsService != "" {
		cfg.ModelsService = o.ModelsService
	}
	if o.BalanceService != "" {
		cfg.BalanceService = o.BalanceService
	}
	if o.AuthService != "" {
		cfg.AuthService = o.AuthService
	}
	if o.APIKey != "" {
		cfg.APIKey = o.APIKey
	}
	if o.Email != "" {
		cfg.Email = o.Email
	}
	if o.Password != "" {
		cfg.Password = o.Password
	}
	if o.AuthEnabled != nil {
		cfg.AuthEnabled = *o.AuthEnabled
	}
	if o.Model != "" {
		cfg.Model = o.Model
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.Timeout != nil {
		cfg.Timeout = time.Duration(*o.Timeout) * time.Second
	}
	if o.Stream != nil {
		cfg.Stream = *o.Stream
	}
}
