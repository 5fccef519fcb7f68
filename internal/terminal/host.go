package terminal

import (
	"io"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/Tonksthebear/restty/internal/vt"
)

// HostOutput serializes writes to the host terminal. Pane output and
// forwarded sequences share it so they never interleave mid-sequence.
type HostOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewHostOutput wraps w.
func NewHostOutput(w io.Writer) *HostOutput {
	return &HostOutput{w: w}
}

func (h *HostOutput) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.w.Write(p)
}

// WriteString writes s as one unit.
func (h *HostOutput) WriteString(s string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return io.WriteString(h.w, s)
}

// ForwardNotification re-emits a notification to the host terminal in the
// form it arrived in.
func (h *HostOutput) ForwardNotification(n vt.DesktopNotification) error {
	var seq string
	switch n.Source {
	case vt.NotificationOSC777:
		seq = ansi.URxvtExt("notify", n.Title, n.Body)
	default:
		seq = ansi.Notify(n.Body)
	}
	_, err := h.WriteString(seq)
	return err
}

// ForwardClipboard sets the host's system clipboard with OSC 52.
func (h *HostOutput) ForwardClipboard(text string) error {
	_, err := h.WriteString(ansi.SetSystemClipboard(text))
	return err
}
