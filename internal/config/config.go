package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for Sara.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Slack     SlackConfig     `json:"slack"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Sheets    SheetsConfig    `json:"sheets"`
	SMTP      SMTPConfig      `json:"smtp"`
	Templates TemplatesConfig `json:"templates"`
	Intent    IntentConfig    `json:"intent"`
	History   HistoryConfig   `json:"history"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type GeneralConfig struct {
	Workspace       string `json:"workspace"`
	LogLevel        string `json:"logLevel"`
	LogFile         string `json:"logFile,omitempty"`
	StateTTLMinutes int    `json:"stateTtlMinutes"` // idle conversations expire after this
}

type SlackConfig struct {
	BotToken string `json:"botToken"`
	AppToken string `json:"appToken"` // required for Socket Mode
}

type OpenAIConfig struct {
	APIKey      string  `json:"apiKey"`
	APIBase     string  `json:"apiBase,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
}

type SheetsConfig struct {
	APIKey               string `json:"apiKey,omitempty"`    // fallback for public sheets
	TokenFile            string `json:"tokenFile,omitempty"` // OAuth token, tried first
	CredentialsFile      string `json:"credentialsFile,omitempty"`
	BrandMasterSheetID   string `json:"brandMasterSheetId"`
	BrandMasterRange     string `json:"brandMasterRange"`
	BrandBalancesSheetID string `json:"brandBalancesSheetId"`
	BrandBalancesRange   string `json:"brandBalancesRange"`
	StatusDocTitle       string `json:"statusDocTitle,omitempty"` // Google Doc read for status asks
}

type SMTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	SenderEmail string `json:"senderEmail"`
	SenderName  string `json:"senderName"`
	Password    string `json:"password"`
}

type TemplatesConfig struct {
	AgreementPath string `json:"agreementPath"`
	InvoicePath   string `json:"invoicePath"`
	OutputDir     string `json:"outputDir"`
}

// IntentConfig points at an optional YAML file overriding the built-in
// classifier keyword lists.
type IntentConfig struct {
	RulesFile string `json:"rulesFile,omitempty"`
}

type HistoryConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	Port     int    `json:"port"`
}

// DefaultConfigDir returns the default config directory (~/.sara).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sara"
	}
	return filepath.Join(home, ".sara")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Sheets.TokenFile = ExpandPath(cfg.Sheets.TokenFile)
	cfg.Sheets.CredentialsFile = ExpandPath(cfg.Sheets.CredentialsFile)
	cfg.Templates.AgreementPath = ExpandPath(cfg.Templates.AgreementPath)
	cfg.Templates.InvoicePath = ExpandPath(cfg.Templates.InvoicePath)
	cfg.Templates.OutputDir = ExpandPath(cfg.Templates.OutputDir)
	cfg.Intent.RulesFile = ExpandPath(cfg.Intent.RulesFile)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.StateTTLMinutes < 1 {
		errs = append(errs, "general.stateTtlMinutes must be >= 1")
	}

	// Tokens still holding an unexpanded ${VAR} are treated as unset so a
	// fresh config validates before the secrets exist.
	if tok := cfg.Slack.BotToken; tok != "" && !isPlaceholder(tok) && !strings.HasPrefix(tok, "xoxb-") {
		errs = append(errs, "slack.botToken must start with xoxb-")
	}
	if tok := cfg.Slack.AppToken; tok != "" && !isPlaceholder(tok) && !strings.HasPrefix(tok, "xapp-") {
		errs = append(errs, "slack.appToken must start with xapp-")
	}

	if cfg.OpenAI.Model == "" {
		errs = append(errs, "openai.model must not be empty")
	}
	if cfg.OpenAI.Temperature < 0 || cfg.OpenAI.Temperature > 2 {
		errs = append(errs, "openai.temperature must be between 0 and 2")
	}

	if cfg.SMTP.Port < 0 || cfg.SMTP.Port > 65535 {
		errs = append(errs, "smtp.port must be between 0 and 65535")
	}
	if cfg.SMTP.SenderEmail != "" && !strings.Contains(cfg.SMTP.SenderEmail, "@") {
		errs = append(errs, "smtp.senderEmail must be an email address")
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535) {
		errs = append(errs, "metrics.port must be between 1 and 65535")
	}
	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}
	if cfg.History.RetentionDays < 1 {
		errs = append(errs, "history.retentionDays must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isPlaceholder(s string) bool {
	return strings.Contains(s, "${")
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
