// Package kitty implements the host-side pieces of the Kitty graphics
// protocol: rewriting file-medium transfers into direct transfers, decoding
// transmitted images, and turning core-reported placements into draw
// instructions.
package kitty

import "strings"

// Format is the value of the f= control key.
type Format int

// Pixel formats a transmission may declare.
const (
	FormatRGB  Format = 24
	FormatRGBA Format = 32
	FormatPNG  Format = 100
)

// Medium is the value of the t= control key.
type Medium string

// Transmission media.
const (
	MediumDirect       Medium = "d"
	MediumFile         Medium = "f"
	MediumTempFile     Medium = "t"
	MediumSharedMemory Medium = "s"
)

// Control keys touched by the rewriter.
const (
	KeyMedium = "t"
	KeyMore   = "m"
	KeySize   = "S"
	KeyOffset = "O"
)

// Param is one control key. Params keep their original order so a command
// can be written back with only the touched keys changed.
type Param struct {
	Key      string
	Value    string
	HasValue bool
}

func (p Param) String() string {
	if !p.HasValue {
		return p.Key
	}
	return p.Key + "=" + p.Value
}

// Command is a parsed graphics command: the part of the APC after the
// leading G.
type Command struct {
	Params  []Param
	Payload string
}

// ParseCommand splits data (everything between "ESC _ G" and the terminator)
// into control params and payload.
func ParseCommand(data string) Command {
	control, payload, _ := strings.Cut(data, ";")
	var cmd Command
	cmd.Payload = payload
	if control == "" {
		return cmd
	}
	for field := range strings.SplitSeq(control, ",") {
		key, value, ok := strings.Cut(field, "=")
		cmd.Params = append(cmd.Params, Param{Key: key, Value: value, HasValue: ok})
	}
	return cmd
}

// Get returns the value of the first param named key.
func (c *Command) Get(key string) (string, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key in place, or appends it.
func (c *Command) Set(key, value string) {
	for i, p := range c.Params {
		if p.Key == key {
			c.Params[i] = Param{Key: key, Value: value, HasValue: true}
			return
		}
	}
	c.Params = append(c.Params, Param{Key: key, Value: value, HasValue: true})
}

// Delete removes every param named key.
func (c *Command) Delete(key string) {
	kept := c.Params[:0]
	for _, p := range c.Params {
		if p.Key != key {
			kept = append(kept, p)
		}
	}
	c.Params = kept
}

// Medium returns the transmission medium, defaulting to direct.
func (c *Command) Medium() Medium {
	if v, ok := c.Get(KeyMedium); ok && v != "" {
		return Medium(v)
	}
	return MediumDirect
}

// Options returns the params in the form ansi.KittyGraphics expects.
func (c *Command) Options() []string {
	opts := make([]string, len(c.Params))
	for i, p := range c.Params {
		opts[i] = p.String()
	}
	return opts
}
