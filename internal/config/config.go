package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// AddressPrefix is the channel tag Twilio expects on every WhatsApp address.
const AddressPrefix = "whatsapp:"

// Required environment variables. Credentials and phone numbers never live in
// the settings file.
const (
	EnvAccountSID   = "TWILIO_ACCOUNT_SID"
	EnvAPIKeySID    = "TWILIO_API_KEY_SID"
	EnvAPIKeySecret = "TWILIO_API_KEY_SECRET"
	EnvServiceSID   = "TWILIO_CONVERSATIONS_SERVICE_SID"
	EnvUserNumber   = "USER_NUMBER"
	EnvTwilioNumber = "TWILIO_NUMBER"
)

// Config is the root runtime configuration: tunables from the optional YAML
// settings file plus credentials and addresses from the environment.
type Config struct {
	General      GeneralConfig      `yaml:"general"`
	Conversation ConversationConfig `yaml:"conversation"`
	Poll         PollConfig         `yaml:"poll"`
	Notify       NotifyConfig       `yaml:"notify"`
	Health       HealthConfig       `yaml:"health"`
	Store        StoreConfig        `yaml:"store"`

	Twilio TwilioConfig `yaml:"-"`
}

type GeneralConfig struct {
	LogLevel string `yaml:"log_level"`
}

// TwilioConfig carries the credentials and the two normalized addresses.
// Populated from the environment only; UserAddress and ProxyAddress always
// carry exactly one AddressPrefix.
type TwilioConfig struct {
	AccountSID   string
	APIKeySID    string
	APIKeySecret string
	ServiceSID   string
	UserAddress  string
	ProxyAddress string
}

type ConversationConfig struct {
	FriendlyName string `yaml:"friendly_name"`
}

type PollConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	ReplyAuthor     string `yaml:"reply_author"`
	ReplyBody       string `yaml:"reply_body"`
}

type NotifyConfig struct {
	Body string `yaml:"body"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// StoreConfig configures poll-cursor persistence. An empty Path keeps the
// cursor in process memory only; a restart then forgets the last answered
// message.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultSettingsPath returns the default settings file location (~/.wabridge/settings.yaml).
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wabridge", "settings.yaml")
	}
	return filepath.Join(home, ".wabridge", "settings.yaml")
}

// Load reads the optional settings file, applies environment variables, and
// validates the result. A missing settings file is not an error; missing
// required environment variables are.
func Load(settingsPath string) (*Config, error) {
	cfg := Defaults()

	if settingsPath != "" {
		data, err := os.ReadFile(ExpandPath(settingsPath))
		switch {
		case err == nil:
			data = []byte(ExpandEnvVars(string(data)))
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse settings file %s: %w", settingsPath, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("cannot read settings file %s: %w", settingsPath, err)
		}
	}

	cfg.Store.Path = ExpandPath(cfg.Store.Path)
	if p := os.Getenv("WABRIDGE_STATE_DB"); p != "" {
		cfg.Store.Path = ExpandPath(p)
	}

	cfg.Twilio = TwilioConfig{
		AccountSID:   os.Getenv(EnvAccountSID),
		APIKeySID:    os.Getenv(EnvAPIKeySID),
		APIKeySecret: os.Getenv(EnvAPIKeySecret),
		ServiceSID:   os.Getenv(EnvServiceSID),
		UserAddress:  NormalizeAddress(os.Getenv(EnvUserNumber)),
		ProxyAddress: NormalizeAddress(os.Getenv(EnvTwilioNumber)),
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// NormalizeAddress converts a raw phone number into canonical addressable
// form: surrounding whitespace trimmed and exactly one AddressPrefix in
// front, no matter whether the input arrived raw, prefixed, or
// double-prefixed. Idempotent.
func NormalizeAddress(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, AddressPrefix) {
		s = strings.TrimSpace(strings.TrimPrefix(s, AddressPrefix))
	}
	return AddressPrefix + s
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in settings strings.
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
			return match // keep original if no env var and no default
		}
		return val
	})
}

// Validate checks settings values and required environment-derived fields.
// All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []string

	required := []struct {
		env   string
		value string
	}{
		{EnvAccountSID, cfg.Twilio.AccountSID},
		{EnvAPIKeySID, cfg.Twilio.APIKeySID},
		{EnvAPIKeySecret, cfg.Twilio.APIKeySecret},
		{EnvServiceSID, cfg.Twilio.ServiceSID},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Sprintf("%s is required", r.env))
		}
	}
	// A normalized address with nothing behind the prefix means the env var
	// was empty or whitespace.
	if cfg.Twilio.UserAddress == AddressPrefix {
		errs = append(errs, fmt.Sprintf("%s is required", EnvUserNumber))
	}
	if cfg.Twilio.ProxyAddress == AddressPrefix {
		errs = append(errs, fmt.Sprintf("%s is required", EnvTwilioNumber))
	}

	if cfg.Conversation.FriendlyName == "" {
		errs = append(errs, "conversation.friendly_name must not be empty")
	}
	if cfg.Poll.IntervalSeconds < 1 {
		errs = append(errs, "poll.interval_seconds must be >= 1")
	}
	if cfg.Poll.ReplyAuthor == "" {
		errs = append(errs, "poll.reply_author must not be empty")
	}
	if cfg.Poll.ReplyBody == "" {
		errs = append(errs, "poll.reply_body must not be empty")
	}
	if cfg.Health.Port < 1 || cfg.Health.Port > 65535 {
		errs = append(errs, "health.port must be between 1 and 65535")
	}

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.log_level must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// defaultSettings is the commented template written by "wabridge init".
// Values here must stay in sync with Defaults(). Credentials never live in
// this file; they are read from the environment.
const defaultSettings = `# wabridge settings. Credentials and phone numbers come from the environment
# (TWILIO_ACCOUNT_SID, TWILIO_API_KEY_SID, TWILIO_API_KEY_SECRET,
# TWILIO_CONVERSATIONS_SERVICE_SID, USER_NUMBER, TWILIO_NUMBER) or a .env
# file, never from here. Values may reference environment variables with
# dollar-brace syntax, including :-default fallbacks.

general:
  # debug | info | warn | error
  log_level: info

conversation:
  # label of the conversation to reuse, or to create if absent
  friendly_name: Friendly Conversation

poll:
  # seconds between message-list fetches
  interval_seconds: 1
  # author and body of the automated reply
  reply_author: system
  reply_body: "Message received. I am the server."

notify:
  # body of the one-shot direct message sent at startup
  body: "This is a message that I want to send over WhatsApp with Twilio!"

health:
  enabled: true
  host: 127.0.0.1
  port: 8080

store:
  # set to a file path (or export WABRIDGE_STATE_DB) to persist the poll
  # cursor across restarts; empty keeps it in process memory
  path: ""
`

// WriteDefaultSettings writes the commented default settings file, creating
// the directory if needed.
func WriteDefaultSettings(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create settings directory: %w", err)
	}
	return os.WriteFile(path, []byte(defaultSettings), 0o644)
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
