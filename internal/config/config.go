// Package config loads homestock settings from config.yaml, HOMESTOCK_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robby/homestock/internal/gesture"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "HOMESTOCK"
)

// Config keys.
const (
	KeyBackend         = "backend"
	KeySupabaseURL     = "supabase.url"
	KeySupabaseAPIKey  = "supabase.api_key"
	KeySupabaseKeyCmd  = "supabase.api_key_command"
	KeySupabaseToken   = "supabase.access_token"
	KeySQLitePath      = "sqlite.path"
	KeyRollback        = "sync.rollback"
	KeyRemoteTimeout   = "remote.timeout"
	KeyLongPress       = "gesture.long_press"
	KeyCooldown        = "gesture.cooldown"
	KeyDeleteReveal    = "gesture.delete_reveal"
	KeyJitter          = "gesture.jitter"
	KeyCellWidth       = "gesture.cell_width"
	KeyCellHeight      = "gesture.cell_height"
	KeyToastDuration   = "ui.toast_duration"
	KeyDashboardURL    = "ui.dashboard_url"
	KeyDebug           = "debug"
	KeyDebugFile       = "debug_file"
	KeyMaxLogFiles     = "max_log_files"
	BackendSupabase    = "supabase"
	BackendSQLite      = "sqlite"
	defaultMaxLogFiles = 10
)

// FlagKeys maps command line flag names to the keys they override.
var FlagKeys = map[string]string{
	"backend":    KeyBackend,
	"db":         KeySQLitePath,
	"rollback":   KeyRollback,
	"debug":      KeyDebug,
	"debug-file": KeyDebugFile,
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# homestock configuration
# Every key can also be set through the environment, e.g.
# HOMESTOCK_SUPABASE_URL or HOMESTOCK_GESTURE_LONG_PRESS.

# Where the list lives: sqlite (this machine only) or supabase
backend: sqlite

# supabase:
#   url: https://<project>.supabase.co
#   api_key: <anon key>
#   api_key_command: pass show homestock/anon-key
#   access_token:

# sqlite:
#   path: ~/.local/share/homestock/homestock.db

sync:
  # snapshot: a failed write reverts every unconfirmed change
  # patch: a failed write reverts only the rows it touched
  rollback: snapshot

remote:
  # Per-request timeout, 0 for none
  timeout: 0s

gesture:
  long_press: 650ms
  cooldown: 400ms
  delete_reveal: 72
  jitter: 10
  # Size of one terminal cell in gesture units
  cell_width: 8
  cell_height: 16

ui:
  toast_duration: 3s
  # Opened with the o key
  # dashboard_url: https://supabase.com/dashboard/project/<project>/editor
`

// Supabase holds the remote backend settings.
type Supabase struct {
	URL           string
	APIKey        string
	APIKeyCommand string
	AccessToken   string
}

// Gesture holds row gesture thresholds plus the terminal cell size used to
// scale mouse positions.
type Gesture struct {
	LongPress    time.Duration
	Cooldown     time.Duration
	DeleteReveal float64
	Jitter       float64
	CellWidth    float64
	CellHeight   float64
}

// Controller returns the thresholds as a gesture.Config.
func (g Gesture) Controller() gesture.Config {
	return gesture.Config{
		LongPress:    g.LongPress,
		Cooldown:     g.Cooldown,
		DeleteReveal: g.DeleteReveal,
		Jitter:       g.Jitter,
	}
}

// UI holds presentation settings.
type UI struct {
	ToastDuration time.Duration
	DashboardURL  string
}

// Config is the resolved configuration.
type Config struct {
	Backend       string
	Supabase      Supabase
	SQLitePath    string
	Rollback      string
	RemoteTimeout time.Duration
	Gesture       Gesture
	UI            UI
	Debug         bool
	DebugFile     string
	MaxLogFiles   int

	// File is the config file that was read, empty if none
	File string
}

// Dir returns the config directory, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "homestock"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "homestock"), nil
}

// DataDir returns the data directory, honoring XDG_DATA_HOME.
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "homestock"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "homestock"), nil
}

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run, then applies environment variables and any
// flags in FlagKeys that were set on flags. flags may be nil.
func Load(configDir string, flags *pflag.FlagSet) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		Supabase: Supabase{
			URL:           strings.TrimSpace(v.GetString(KeySupabaseURL)),
			APIKey:        v.GetString(KeySupabaseAPIKey),
			APIKeyCommand: v.GetString(KeySupabaseKeyCmd),
			AccessToken:   v.GetString(KeySupabaseToken),
		},
		SQLitePath:    v.GetString(KeySQLitePath),
		Rollback:      strings.ToLower(strings.TrimSpace(v.GetString(KeyRollback))),
		RemoteTimeout: v.GetDuration(KeyRemoteTimeout),
		Gesture: Gesture{
			LongPress:    v.GetDuration(KeyLongPress),
			Cooldown:     v.GetDuration(KeyCooldown),
			DeleteReveal: v.GetFloat64(KeyDeleteReveal),
			Jitter:       v.GetFloat64(KeyJitter),
			CellWidth:    v.GetFloat64(KeyCellWidth),
			CellHeight:   v.GetFloat64(KeyCellHeight),
		},
		UI: UI{
			ToastDuration: v.GetDuration(KeyToastDuration),
			DashboardURL:  v.GetString(KeyDashboardURL),
		},
		Debug:       v.GetBool(KeyDebug),
		DebugFile:   v.GetString(KeyDebugFile),
		MaxLogFiles: v.GetInt(KeyMaxLogFiles),
		File:        v.ConfigFileUsed(),
	}

	if cfg.SQLitePath == "" {
		dataDir, err := DataDir()
		if err != nil {
			return nil, err
		}
		cfg.SQLitePath = filepath.Join(dataDir, "homestock.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := gesture.DefaultConfig()
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeyRollback, "snapshot")
	v.SetDefault(KeyRemoteTimeout, time.Duration(0))
	v.SetDefault(KeyLongPress, def.LongPress)
	v.SetDefault(KeyCooldown, def.Cooldown)
	v.SetDefault(KeyDeleteReveal, def.DeleteReveal)
	v.SetDefault(KeyJitter, def.Jitter)
	v.SetDefault(KeyCellWidth, 8.0)
	v.SetDefault(KeyCellHeight, 16.0)
	v.SetDefault(KeyToastDuration, 3*time.Second)
	v.SetDefault(KeyMaxLogFiles, defaultMaxLogFiles)

	// Keys without defaults still need registering for AutomaticEnv to
	// reach them through GetString
	for _, key := range []string{KeySupabaseURL, KeySupabaseAPIKey, KeySupabaseKeyCmd, KeySupabaseToken, KeySQLitePath, KeyDashboardURL, KeyDebugFile} {
		v.SetDefault(key, "")
	}
	v.SetDefault(KeyDebug, false)
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendSupabase:
		if c.Supabase.URL == "" {
			return fmt.Errorf("%s is required when backend is %s", KeySupabaseURL, BackendSupabase)
		}
	default:
		return fmt.Errorf("invalid %s %q (want %s or %s)", KeyBackend, c.Backend, BackendSQLite, BackendSupabase)
	}

	switch c.Rollback {
	case "snapshot", "patch":
	default:
		return fmt.Errorf("invalid %s %q (want snapshot or patch)", KeyRollback, c.Rollback)
	}

	if c.RemoteTimeout < 0 {
		return fmt.Errorf("invalid %s %s", KeyRemoteTimeout, c.RemoteTimeout)
	}
	if c.Gesture.CellWidth <= 0 || c.Gesture.CellHeight <= 0 {
		return fmt.Errorf("gesture cell size must be positive")
	}
	return nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
