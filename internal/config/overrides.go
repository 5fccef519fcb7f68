package config

// Overrides contains CLI flag values that can override user config.
// Zero values indicate the flag was not set and should use the user config default.
type Overrides struct {
	// Shell overrides the shell to spawn
	Shell string

	// XTVersion overrides the XTVERSION identification string
	XTVersion string

	// Debug forces debug logging
	Debug bool

	// LogFile overrides the log destination
	LogFile string

	// NoKittyFiles disables inlining of file-medium graphics transfers
	NoKittyFiles bool

	// AllowClipboardRead lets programs read the clipboard over OSC 52
	AllowClipboardRead bool

	// CellWidth and CellHeight override the fallback cell metrics
	CellWidth  int
	CellHeight int
}

// ApplyOverrides applies CLI flag overrides on top of cfg. A nil cfg starts
// from DefaultConfig. The returned config is always non-nil.
func ApplyOverrides(overrides Overrides, cfg *UserConfig) *UserConfig {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if overrides.Shell != "" {
		cfg.Terminal.Shell = overrides.Shell
	}
	if overrides.XTVersion != "" {
		cfg.Terminal.XTVersion = overrides.XTVersion
	}
	if overrides.CellWidth > 0 {
		cfg.Terminal.CellWidth = overrides.CellWidth
	}
	if overrides.CellHeight > 0 {
		cfg.Terminal.CellHeight = overrides.CellHeight
	}

	// Debug - simple flag override
	if overrides.Debug {
		cfg.Log.Level = "debug"
	}
	if overrides.LogFile != "" {
		cfg.Log.File = overrides.LogFile
	}

	// Flags can only turn these toward the non-default side
	if overrides.NoKittyFiles {
		cfg.Kitty.ResolveFiles = boolPtr(false)
	}
	if overrides.AllowClipboardRead {
		cfg.Clipboard.AllowRead = boolPtr(true)
	}
	return cfg
}
