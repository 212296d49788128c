package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	envPrefix       = "MCPBRIDGE_"
	settingsDirName = ".mcpbridge"
)

// LoadOptions locate the configuration sources.
type LoadOptions struct {
	// ProjectRoot holds .env and .mcpbridge/settings*.json. Empty skips them.
	ProjectRoot string
	// EnvFile is an explicit dotenv file; it must exist when set.
	EnvFile string
	// ConfigPath is an explicit JSON settings file; it must exist when set.
	ConfigPath string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load layers, lowest first: defaults, dotenv files, project settings,
// local project settings, the explicit config file, MCPBRIDGE_* variables.
// The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadDotenv(opts); err != nil {
		return nil, err
	}

	cfg := Default()
	for _, path := range []string{getProjectSettingsPath(opts.ProjectRoot), getLocalSettingsPath(opts.ProjectRoot)} {
		if path == "" {
			continue
		}
		if err := mergeFile(&cfg, path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
	}
	if opts.ConfigPath != "" {
		if err := mergeFile(&cfg, opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and validates a single JSON settings file over the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return DecodeConfig(data)
}

// DecodeConfig parses a raw JSON payload over the defaults.
func DecodeConfig(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, errors.New("config payload is empty")
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// loadDotenv never overrides variables already present in the environment.
func loadDotenv(opts LoadOptions) error {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if opts.ProjectRoot != "" {
		path := filepath.Join(opts.ProjectRoot, ".env")
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_URL":    &cfg.ServerURL,
		"PROVIDER":      &cfg.Provider,
		"MODEL":         &cfg.Model,
		"OLLAMA_HOST":   &cfg.OllamaHost,
		"SYSTEM_PROMPT": &cfg.SystemPrompt,
		"QUIT_TOKEN":    &cfg.QuitToken,
		"HISTORY_FILE":  &cfg.HistoryFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"AUTO_CONFIRM":  &cfg.AutoConfirm,
		"VALIDATE_ARGS": &cfg.ValidateArguments,
	}
	for key, dst := range bools {
		v, ok := lookup(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = parsed
	}

	if v, ok := lookup(envPrefix + "OLLAMA_OPTIONS"); ok && strings.TrimSpace(v) != "" {
		opts := map[string]any{}
		if err := json.Unmarshal([]byte(v), &opts); err != nil {
			return fmt.Errorf("%sOLLAMA_OPTIONS: expected a JSON object: %w", envPrefix, err)
		}
		cfg.OllamaOptions = lo.Assign(cfg.OllamaOptions, opts)
	}
	if v, ok := lookup(envPrefix + "OLLAMA_HEADERS"); ok && strings.TrimSpace(v) != "" {
		headers := map[string]string{}
		if err := json.Unmarshal([]byte(v), &headers); err != nil {
			return fmt.Errorf("%sOLLAMA_HEADERS: expected a JSON object of strings: %w", envPrefix, err)
		}
		cfg.OllamaHeaders = lo.Assign(cfg.OllamaHeaders, headers)
	}

	if v, ok := lookup(envPrefix + "INFERENCE_TIMEOUT"); ok {
		parsed, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sINFERENCE_TIMEOUT: %w", envPrefix, err)
		}
		cfg.InferenceTimeout = parsed
	}
	return nil
}

func getProjectSettingsPath(root string) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	return filepath.Join(root, settingsDirName, "settings.json")
}

func getLocalSettingsPath(root string) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	return filepath.Join(root, settingsDirName, "settings.local.json")
}
