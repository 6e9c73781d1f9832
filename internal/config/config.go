// Package config loads pagechat's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/csheth/pagechat/internal/document"
)

// EnvPrefix prefixes environment overrides, e.g. PAGECHAT_LOG_LEVEL.
const EnvPrefix = "PAGECHAT"

// Config is the full runtime configuration.
type Config struct {
	Viewer   ViewerConfig   `mapstructure:"viewer" toml:"viewer"`
	Chat     ChatConfig     `mapstructure:"chat" toml:"chat"`
	Document DocumentConfig `mapstructure:"document" toml:"document"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	UI       UIConfig       `mapstructure:"ui" toml:"ui"`
}

// ViewerConfig tunes page display.
type ViewerConfig struct {
	DefaultScale float64 `mapstructure:"default_scale" toml:"default_scale"`
	ZoomStep     float64 `mapstructure:"zoom_step" toml:"zoom_step"`
	FitPadding   int     `mapstructure:"fit_padding" toml:"fit_padding"`
}

// ChatConfig tunes the chat panel.
type ChatConfig struct {
	ReplyDelay time.Duration `mapstructure:"reply_delay" toml:"reply_delay"`
}

// DocumentConfig tunes document loading.
type DocumentConfig struct {
	Validation     string        `mapstructure:"validation" toml:"validation"`
	ExtractWorkers int           `mapstructure:"extract_workers" toml:"extract_workers"`
	Watch          bool          `mapstructure:"watch" toml:"watch"`
	WatchInterval  time.Duration `mapstructure:"watch_interval" toml:"watch_interval"`
}

// LogConfig selects where logs go.
type LogConfig struct {
	Path  string `mapstructure:"path" toml:"path"`
	Level string `mapstructure:"level" toml:"level"`
}

// UIConfig tunes the terminal program.
type UIConfig struct {
	AltScreen bool `mapstructure:"alt_screen" toml:"alt_screen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Viewer: ViewerConfig{
			DefaultScale: 1.0,
			ZoomStep:     0.1,
			FitPadding:   4,
		},
		Chat: ChatConfig{ReplyDelay: time.Second},
		Document: DocumentConfig{
			Validation:     string(document.ValidationRelaxed),
			ExtractWorkers: document.DefaultExtractWorkers,
			Watch:          true,
			WatchInterval:  document.DefaultWatchInterval,
		},
		Log: LogConfig{
			Path:  defaultLogPath(),
			Level: "info",
		},
		UI: UIConfig{AltScreen: true},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pagechat/config.toml or its platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "pagechat", "config.toml"), nil
}

func defaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pagechat", "pagechat.log")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "pagechat", "pagechat.log")
	}
	return filepath.Join(os.TempDir(), "pagechat.log")
}

// Load reads path, or DefaultPath when path is empty. A missing file yields
// the defaults; environment variables override both.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("viewer.default_scale", cfg.Viewer.DefaultScale)
	v.SetDefault("viewer.zoom_step", cfg.Viewer.ZoomStep)
	v.SetDefault("viewer.fit_padding", cfg.Viewer.FitPadding)
	v.SetDefault("chat.reply_delay", cfg.Chat.ReplyDelay)
	v.SetDefault("document.validation", cfg.Document.Validation)
	v.SetDefault("document.extract_workers", cfg.Document.ExtractWorkers)
	v.SetDefault("document.watch", cfg.Document.Watch)
	v.SetDefault("document.watch_interval", cfg.Document.WatchInterval)
	v.SetDefault("log.path", cfg.Log.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("ui.alt_screen", cfg.UI.AltScreen)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the viewer cannot honor.
func (c Config) Validate() error {
	if c.Viewer.DefaultScale < 0.5 || c.Viewer.DefaultScale > 3.0 {
		return fmt.Errorf("viewer.default_scale %.2f outside [0.5, 3.0]", c.Viewer.DefaultScale)
	}
	if c.Viewer.ZoomStep <= 0 || c.Viewer.ZoomStep > 1 {
		return fmt.Errorf("viewer.zoom_step %.2f outside (0, 1]", c.Viewer.ZoomStep)
	}
	if c.Viewer.FitPadding < 0 {
		return fmt.Errorf("viewer.fit_padding must not be negative")
	}
	if c.Chat.ReplyDelay < 0 {
		return fmt.Errorf("chat.reply_delay must not be negative")
	}
	if _, err := document.ParseValidation(c.Document.Validation); err != nil {
		return fmt.Errorf("document.validation: %w", err)
	}
	if c.Document.ExtractWorkers < 1 {
		return fmt.Errorf("document.extract_workers must be at least 1")
	}
	return nil
}

// Write stores cfg as TOML at path. An existing file is kept unless force
// is set.
func Write(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	data, err := toml.Marshal(fileConfig(cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

type fileViewer struct {
	DefaultScale float64 `toml:"default_scale"`
	ZoomStep     float64 `toml:"zoom_step"`
	FitPadding   int     `toml:"fit_padding"`
}

type fileChat struct {
	ReplyDelay string `toml:"reply_delay"`
}

type fileDocument struct {
	Validation     string `toml:"validation"`
	ExtractWorkers int    `toml:"extract_workers"`
	Watch          bool   `toml:"watch"`
	WatchInterval  string `toml:"watch_interval"`
}

type file struct {
	Viewer   fileViewer   `toml:"viewer"`
	Chat     fileChat     `toml:"chat"`
	Document fileDocument `toml:"document"`
	Log      LogConfig    `toml:"log"`
	UI       UIConfig     `toml:"ui"`
}

// fileConfig spells durations the way a person would type them.
func fileConfig(cfg Config) file {
	return file{
		Viewer: fileViewer(cfg.Viewer),
		Chat:   fileChat{ReplyDelay: cfg.Chat.ReplyDelay.String()},
		Document: fileDocument{
			Validation:     cfg.Document.Validation,
			ExtractWorkers: cfg.Document.ExtractWorkers,
			Watch:          cfg.Document.Watch,
			WatchInterval:  cfg.Document.WatchInterval.String(),
		},
		Log: cfg.Log,
		UI:  cfg.UI,
	}
}
