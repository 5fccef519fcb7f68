// Package vt intercepts the control sequences in a terminal output stream that
// need host-side side effects: clipboard access, desktop notifications,
// window and cell metric queries, mode tracking and shell-integration prompt
// markers. Everything else is forwarded to the terminal core untouched.
package vt

import "image/color"

// Logger represents a logger interface.
type Logger interface {
	Printf(format string, v ...any)
}

// CursorPosition is a 1-based cursor location reported by the terminal core.
type CursorPosition struct {
	Row int
	Col int
}

// WindowMetrics is a snapshot of the renderer's grid and pixel geometry.
type WindowMetrics struct {
	Rows         int
	Cols         int
	WidthPx      int
	HeightPx     int
	CellWidthPx  int
	CellHeightPx int
}

// DefaultColors holds the renderer's default colors. A nil color means the
// renderer has no value for that slot.
type DefaultColors struct {
	Foreground color.Color
	Background color.Color
	Cursor     color.Color
}

// NotificationSource identifies the OSC that produced a notification.
type NotificationSource string

const (
	// NotificationOSC9 is the iTerm2/ConEmu style OSC 9 notification.
	NotificationOSC9 NotificationSource = "osc9"
	// NotificationOSC777 is the urxvt style OSC 777 notify notification.
	NotificationOSC777 NotificationSource = "osc777"
)

// DesktopNotification is a notification request from the running program.
type DesktopNotification struct {
	Title  string
	Body   string
	Source NotificationSource
	Raw    string // the OSC body as received, without introducer or terminator
}

// WindowOpType is the kind of a window operation.
type WindowOpType string

const (
	// WindowOpResize requests a text-area resize in character cells.
	WindowOpResize WindowOpType = "resize"
	// WindowOpUnknown is any other XTWINOPS request.
	WindowOpUnknown WindowOpType = "unknown"
)

// WindowOp is an XTWINOPS request forwarded to the host.
// Rows and Cols are only set for WindowOpResize.
type WindowOp struct {
	Type   WindowOpType
	Rows   int
	Cols   int
	Params []int
	Raw    string
}

// Callbacks are the collaborators the filter calls into. Every field is
// optional; a nil field means the collaborator is absent.
type Callbacks struct {
	// SendReply writes a reply back to the program (the PTY input side).
	// It may be called from another goroutine when an asynchronous
	// operation such as a clipboard read completes.
	SendReply func(reply string)

	// CursorPosition returns the current 1-based cursor position.
	CursorPosition func() CursorPosition

	// WindowMetrics returns the current window metrics. The boolean is false
	// when metrics are unavailable.
	WindowMetrics func() (WindowMetrics, bool)

	// DefaultColors returns the renderer's default colors.
	DefaultColors func() DefaultColors

	// ClipboardWrite stores text on the clipboard.
	ClipboardWrite func(text string) error

	// ClipboardRead reads the clipboard. ok is false when it is empty.
	ClipboardRead func() (text string, ok bool, err error)

	// WindowOp receives XTWINOPS requests that are not metric reports.
	WindowOp func(op WindowOp)

	// DesktopNotification receives OSC 9 and OSC 777 notifications.
	DesktopNotification func(n DesktopNotification)

	// ModeSequence lets the mouse-mode tracker inspect every complete CSI
	// sequence. Returning true consumes the sequence.
	ModeSequence func(seq string) bool
}

func (cb *Callbacks) reply(s string) {
	if cb.SendReply != nil && s != "" {
		cb.SendReply(s)
	}
}
