package terminal

import (
	"errors"
	"sync"
)

// ErrClipboardDenied is returned when the clipboard policy blocks an access.
var ErrClipboardDenied = errors.New("clipboard access denied")

// Clipboard is the pane's clipboard. Programs write to it with OSC 52 and, if
// allowed, read it back. Writes can be mirrored to the host terminal.
type Clipboard struct {
	mu        sync.RWMutex
	text      string
	set       bool
	allowRead bool
	allowSet  bool
	onWrite   func(text string)
}

// NewClipboard creates a clipboard with the given policy. onWrite, if set, is
// called after every accepted write.
func NewClipboard(allowRead, allowWrite bool, onWrite func(text string)) *Clipboard {
	return &Clipboard{allowRead: allowRead, allowSet: allowWrite, onWrite: onWrite}
}

// Write stores text. An empty string clears the clipboard.
func (c *Clipboard) Write(text string) error {
	if !c.allowSet {
		return ErrClipboardDenied
	}
	c.mu.Lock()
	c.text = text
	c.set = text != ""
	c.mu.Unlock()

	if c.onWrite != nil {
		c.onWrite(text)
	}
	return nil
}

// Read returns the clipboard contents. ok is false when it is empty.
func (c *Clipboard) Read() (string, bool, error) {
	if !c.allowRead {
		return "", false, ErrClipboardDenied
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text, c.set, nil
}

// Text returns the contents regardless of the read policy, for the host UI.
func (c *Clipboard) Text() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.text
}
