package config

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned for color settings that are not #rgb or #rrggbb.
var ErrInvalidColor = errors.New("invalid color")

// ValidationIssue is one problem found in a config file.
type ValidationIssue struct {
	Field   string // Section, e.g. "colors"
	Key     string
	Message string
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Field, i.Key, i.Message)
}

// ValidationResult collects errors (fatal) and warnings.
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// HasErrors reports whether any fatal issue was found.
func (v *ValidationResult) HasErrors() bool { return len(v.Errors) > 0 }

// HasWarnings reports whether any warning was found.
func (v *ValidationResult) HasWarnings() bool { return len(v.Warnings) > 0 }

// Err folds the errors into one error, or returns nil.
func (v *ValidationResult) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		msgs[i] = e.String()
	}
	return fmt.Errorf("configuration has %d error(s): %s", len(v.Errors), strings.Join(msgs, "; "))
}

func (v *ValidationResult) addError(field, key, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationIssue{Field: field, Key: key, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(field, key, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationIssue{Field: field, Key: key, Message: fmt.Sprintf(format, args...)})
}

// ValidateConfig checks values that cannot be defaulted.
func ValidateConfig(cfg *UserConfig) *ValidationResult {
	v := &ValidationResult{}

	for key, value := range map[string]string{
		"foreground": cfg.Colors.Foreground,
		"background": cfg.Colors.Background,
		"cursor":     cfg.Colors.Cursor,
	} {
		if value == "" {
			continue
		}
		if _, err := ParseColor(value); err != nil {
			v.addError("colors", key, "%v", err)
		}
	}

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		v.addError("log", "level", "unknown level %q", cfg.Log.Level)
	}

	if cfg.Terminal.CellWidth > 256 || cfg.Terminal.CellHeight > 256 {
		v.addWarning("terminal", "cell_width", "cell size %dx%d looks wrong", cfg.Terminal.CellWidth, cfg.Terminal.CellHeight)
	}
	if Enabled(cfg.Clipboard.AllowRead) {
		v.addWarning("clipboard", "allow_read", "programs in the pane can read the clipboard")
	}
	return v
}

// ParseColor parses a #rgb or #rrggbb color.
func ParseColor(s string) (color.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidColor, s)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// DefaultColors returns the parsed colors. Unset colors are nil.
func (c ColorsConfig) DefaultColors() (fg, bg, cursor color.Color, err error) {
	parse := func(s string) (color.Color, error) {
		if s == "" {
			return nil, nil
		}
		return ParseColor(s)
	}
	if fg, err = parse(c.Foreground); err != nil {
		return nil, nil, nil, err
	}
	if bg, err = parse(c.Background); err != nil {
		return nil, nil, nil, err
	}
	if cursor, err = parse(c.Cursor); err != nil {
		return nil, nil, nil, err
	}
	return fg, bg, cursor, nil
}
