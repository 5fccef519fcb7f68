package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// configRelPath is the config file location relative to the XDG config dirs.
const configRelPath = "restty/config.toml"

// UserConfig represents the user's custom configuration
type UserConfig struct {
	Terminal      TerminalConfig      `toml:"terminal"`
	Colors        ColorsConfig        `toml:"colors"`
	Clipboard     ClipboardConfig     `toml:"clipboard"`
	Notifications NotificationsConfig `toml:"notifications"`
	Kitty         KittyConfig         `toml:"kitty"`
	Log           LogConfig           `toml:"log"`
}

// TerminalConfig holds pane settings
type TerminalConfig struct {
	Shell         string `toml:"shell"`          // Shell to spawn; empty means $SHELL, then /bin/sh
	CellWidth     int    `toml:"cell_width"`     // Cell width in pixels when the host terminal does not report one
	CellHeight    int    `toml:"cell_height"`    // Cell height in pixels when the host terminal does not report one
	XTVersion     string `toml:"xtversion"`      // Name reported to XTVERSION queries
	MarkerHistory int    `toml:"marker_history"` // Number of OSC 133 markers to keep (0 disables)
}

// ColorsConfig holds the default colors reported to OSC 10/11/12 queries
type ColorsConfig struct {
	Foreground string `toml:"foreground"` // #rrggbb
	Background string `toml:"background"`
	Cursor     string `toml:"cursor"` // Empty leaves cursor color queries to the host
}

// ClipboardConfig controls OSC 52
type ClipboardConfig struct {
	AllowRead     *bool `toml:"allow_read"`      // Answer clipboard read requests (default: false)
	AllowWrite    *bool `toml:"allow_write"`     // Accept clipboard writes (default: true)
	ForwardToHost *bool `toml:"forward_to_host"` // Re-emit writes to the host terminal (default: true)
}

// NotificationsConfig controls OSC 9 and OSC 777
type NotificationsConfig struct {
	Enabled       *bool `toml:"enabled"`         // Deliver notifications at all (default: true)
	ForwardToHost *bool `toml:"forward_to_host"` // Re-emit them to the host terminal (default: true)
}

// KittyConfig controls the graphics file-medium rewriter
type KittyConfig struct {
	ResolveFiles    *bool `toml:"resolve_files"`     // Inline t=f and t=t transfers (default: true)
	RemoveTempFiles *bool `toml:"remove_temp_files"` // Delete t=t files once read (default: true)
	MaxFileBytes    int64 `toml:"max_file_bytes"`    // Larger files are left unresolved (default: 64 MiB)
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error (default: info)
	File  string `toml:"file"`  // Log file; empty uses the XDG state dir (run) or discards (filter)
}

// Default values
const (
	DefaultCellWidth     = 8
	DefaultCellHeight    = 16
	DefaultXTVersion     = "ghostty 1.0"
	DefaultMarkerHistory = 1000
	DefaultMaxFileBytes  = 64 << 20
	DefaultLogLevel      = "info"
	DefaultForeground    = "#d8dee9"
	DefaultBackground    = "#1e1e2e"
)

func boolPtr(b bool) *bool { return &b }

// Enabled dereferences an optional setting; unset reads as false.
func Enabled(b *bool) bool { return b != nil && *b }

// DefaultConfig returns the default configuration
func DefaultConfig() *UserConfig {
	return &UserConfig{
		Terminal: TerminalConfig{
			CellWidth:     DefaultCellWidth,
			CellHeight:    DefaultCellHeight,
			XTVersion:     DefaultXTVersion,
			MarkerHistory: DefaultMarkerHistory,
		},
		Colors: ColorsConfig{
			Foreground: DefaultForeground,
			Background: DefaultBackground,
		},
		Clipboard: ClipboardConfig{
			AllowRead:     boolPtr(false),
			AllowWrite:    boolPtr(true),
			ForwardToHost: boolPtr(true),
		},
		Notifications: NotificationsConfig{
			Enabled:       boolPtr(true),
			ForwardToHost: boolPtr(true),
		},
		Kitty: KittyConfig{
			ResolveFiles:    boolPtr(true),
			RemoveTempFiles: boolPtr(true),
			MaxFileBytes:    DefaultMaxFileBytes,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// LoadUserConfig loads the user configuration from XDG config directory,
// creating it with defaults on first run.
func LoadUserConfig() (*UserConfig, error) {
	configPath, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return createDefaultConfig()
	}
	return LoadFile(configPath)
}

// LoadFile loads and validates a config file at path.
func LoadFile(path string) (*UserConfig, error) {
	// #nosec G304 - reading user config is intentional
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML config data, fills in defaults and validates the result.
func Parse(data []byte) (*UserConfig, error) {
	var cfg UserConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaultCfg := DefaultConfig()
	fillMissingTerminal(&cfg, defaultCfg)
	fillMissingColors(&cfg, defaultCfg)
	fillMissingToggles(&cfg, defaultCfg)
	fillMissingLog(&cfg, defaultCfg)

	validation := ValidateConfig(&cfg)
	if validation.HasErrors() {
		return nil, validation.Err()
	}
	return &cfg, nil
}

// createDefaultConfig creates a default config file in the user's config directory
func createDefaultConfig() (*UserConfig, error) {
	configPath, err := xdg.ConfigFile(configRelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	cfg := DefaultConfig()
	if err := WriteConfig(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteConfig writes cfg to path with a commented header.
func WriteConfig(path string, cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# restty configuration file\n")
	sb.WriteString("#\n")
	sb.WriteString("# Configuration location: " + path + "\n")
	sb.WriteString("#\n")
	sb.WriteString("# [terminal] cell_width/cell_height are used for pixel size reports\n")
	sb.WriteString("#   when the host terminal does not report its pixel size.\n")
	sb.WriteString("# [colors] answer OSC 10/11/12 queries; leave cursor empty to pass\n")
	sb.WriteString("#   cursor color queries through.\n")
	sb.WriteString("# [clipboard] allow_read is off by default: programs in the pane could\n")
	sb.WriteString("#   otherwise read anything you copied.\n")
	sb.WriteString("# [kitty] resolve_files inlines images sent as file references.\n")
	sb.WriteString("# [log] level: debug, info, warn, error\n\n")
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fillMissingTerminal(cfg, defaultCfg *UserConfig) {
	if cfg.Terminal.CellWidth <= 0 {
		cfg.Terminal.CellWidth = defaultCfg.Terminal.CellWidth
	}
	if cfg.Terminal.CellHeight <= 0 {
		cfg.Terminal.CellHeight = defaultCfg.Terminal.CellHeight
	}
	if cfg.Terminal.XTVersion == "" {
		cfg.Terminal.XTVersion = defaultCfg.Terminal.XTVersion
	}
	// MarkerHistory 0 is a valid choice, negative means unset
	if cfg.Terminal.MarkerHistory < 0 {
		cfg.Terminal.MarkerHistory = defaultCfg.Terminal.MarkerHistory
	}
}

func fillMissingColors(cfg, defaultCfg *UserConfig) {
	if cfg.Colors.Foreground == "" {
		cfg.Colors.Foreground = defaultCfg.Colors.Foreground
	}
	if cfg.Colors.Background == "" {
		cfg.Colors.Background = defaultCfg.Colors.Background
	}
}

func fillMissingToggles(cfg, defaultCfg *UserConfig) {
	fillBool(&cfg.Clipboard.AllowRead, defaultCfg.Clipboard.AllowRead)
	fillBool(&cfg.Clipboard.AllowWrite, defaultCfg.Clipboard.AllowWrite)
	fillBool(&cfg.Clipboard.ForwardToHost, defaultCfg.Clipboard.ForwardToHost)
	fillBool(&cfg.Notifications.Enabled, defaultCfg.Notifications.Enabled)
	fillBool(&cfg.Notifications.ForwardToHost, defaultCfg.Notifications.ForwardToHost)
	fillBool(&cfg.Kitty.ResolveFiles, defaultCfg.Kitty.ResolveFiles)
	fillBool(&cfg.Kitty.RemoveTempFiles, defaultCfg.Kitty.RemoveTempFiles)
	if cfg.Kitty.MaxFileBytes <= 0 {
		cfg.Kitty.MaxFileBytes = defaultCfg.Kitty.MaxFileBytes
	}
}

func fillMissingLog(cfg, defaultCfg *UserConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultCfg.Log.Level
	}
}

func fillBool(target **bool, def *bool) {
	if *target == nil && def != nil {
		*target = boolPtr(*def)
	}
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	path, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		// Return where it would be created
		return xdg.ConfigFile(configRelPath)
	}
	return path, nil
}
