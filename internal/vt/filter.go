package vt

import (
	"bytes"
	"strings"

	uv "github.com/charmbracelet/ultraviolet"
)

const (
	esc = 0x1b
	bel = 0x07
)

// Option configures an OutputFilter.
type Option func(*OutputFilter)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l Logger) Option {
	return func(f *OutputFilter) { f.logger = l }
}

// WithXTVersion sets the name reported to XTVERSION queries.
func WithXTVersion(name string) Option {
	return func(f *OutputFilter) {
		if name != "" {
			f.xtversion = name
		}
	}
}

// WithMarkerHistory records OSC 133 markers in a bounded list.
func WithMarkerHistory(maxItems int) Option {
	return func(f *OutputFilter) { f.prompt.History = NewSemanticMarkerList(maxItems) }
}

// OutputFilter scans terminal output, handles the sequences that need host
// side effects and returns everything else for the core. It keeps at most one
// incomplete escape sequence between calls, so sequences may be split across
// chunks at any byte.
//
// An OutputFilter belongs to a single pane and is not safe for concurrent
// use. Only SendReply may be invoked from another goroutine.
type OutputFilter struct {
	cb        Callbacks
	logger    Logger
	xtversion string

	modes     OutputModes
	prompt    PromptState
	altScreen bool

	remainder []byte
}

// NewOutputFilter creates a filter that calls into cb.
func NewOutputFilter(cb Callbacks, opts ...Option) *OutputFilter {
	f := &OutputFilter{
		cb:        cb,
		xtversion: DefaultXTVersion,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter processes one chunk of output and returns the part that should
// reach the core.
func (f *OutputFilter) Filter(chunk string) string {
	if len(f.remainder) == 0 && strings.IndexByte(chunk, esc) < 0 {
		return chunk
	}
	return string(f.FilterBytes([]byte(chunk)))
}

// FilterBytes is Filter for byte slices. The returned slice is newly
// allocated.
func (f *OutputFilter) FilterBytes(chunk []byte) []byte {
	var buf []byte
	if len(f.remainder) > 0 {
		buf = make([]byte, 0, len(f.remainder)+len(chunk))
		buf = append(buf, f.remainder...)
		buf = append(buf, chunk...)
		f.remainder = f.remainder[:0]
	} else {
		buf = chunk
	}

	out := make([]byte, 0, len(buf))
	i := 0
	for i < len(buf) {
		idx := bytes.IndexByte(buf[i:], esc)
		if idx < 0 {
			out = append(out, buf[i:]...)
			break
		}
		start := i + idx
		out = append(out, buf[i:start]...)

		if start+1 >= len(buf) {
			f.stash(buf[start:])
			break
		}

		switch buf[start+1] {
		case ']':
			end, termLen := findStringTerminator(buf, start+2)
			if end < 0 {
				f.stash(buf[start:])
				return out
			}
			seq := buf[start:end]
			body := string(buf[start+2 : end-termLen])
			if !f.handleOsc(body) {
				out = append(out, seq...)
			}
			i = end

		case '[':
			end := findCsiFinal(buf, start+2)
			if end < 0 {
				f.stash(buf[start:])
				return out
			}
			seq := buf[start:end]
			if !f.handleCsi(string(seq)) {
				out = append(out, seq...)
			}
			i = end

		default:
			out = append(out, esc)
			i = start + 1
		}
	}
	return out
}

func (f *OutputFilter) stash(b []byte) {
	f.remainder = append(f.remainder[:0], b...)
}

// findStringTerminator returns the index just past the BEL or ST that ends
// the string starting at from, and the terminator length. It returns -1
// when the string is not terminated yet.
func findStringTerminator(buf []byte, from int) (end, termLen int) {
	for j := from; j < len(buf); j++ {
		switch buf[j] {
		case bel:
			return j + 1, 1
		case esc:
			if j+1 < len(buf) && buf[j+1] == '\\' {
				return j + 2, 2
			}
		}
	}
	return -1, 0
}

// findCsiFinal returns the index just past the first final byte (0x40-0x7e)
// at or after from, or -1.
func findCsiFinal(buf []byte, from int) int {
	for j := from; j < len(buf); j++ {
		if buf[j] >= 0x40 && buf[j] <= 0x7e {
			return j + 1
		}
	}
	return -1
}

func (f *OutputFilter) handleOsc(body string) bool {
	ObservePromptSequence(body, &f.prompt)
	return DispatchOsc(body, &f.cb, f.logger)
}

func (f *OutputFilter) handleCsi(seq string) bool {
	f.altScreen = DeriveAltScreen(seq, f.altScreen)

	handled := false
	if f.cb.ModeSequence != nil && f.cb.ModeSequence(seq) {
		handled = true
	}
	if ApplyTrackedPrivateModes(seq, &f.modes) {
		handled = true
	}
	if handled {
		return true
	}

	if strings.HasSuffix(seq, "t") && HandleWindowOpSequence(seq, &f.cb) {
		return true
	}
	return HandleCoreCsiSequence(seq, &f.cb, f.xtversion)
}

// Modes returns the tracked private modes.
func (f *OutputFilter) Modes() OutputModes {
	return f.modes
}

// AltScreen reports whether the alternate screen is active.
func (f *OutputFilter) AltScreen() bool {
	return f.altScreen
}

// PromptState returns a copy of the shell integration state.
func (f *OutputFilter) PromptState() PromptState {
	return f.prompt
}

// PromptClickEventsEnabled reports whether EncodePromptClick would produce a
// sequence.
func (f *OutputFilter) PromptClickEventsEnabled() bool {
	return IsPromptClickEventsEnabled(&f.prompt, f.altScreen)
}

// EncodePromptClick encodes a click on the zero-based cell for the shell
// prompt, or returns an empty string when prompt clicks are disabled.
func (f *OutputFilter) EncodePromptClick(cell uv.Position) string {
	return EncodePromptClickEvent(&f.prompt, f.altScreen, cell)
}

// Markers returns the recorded OSC 133 markers, if history is enabled.
func (f *OutputFilter) Markers() []SemanticMarker {
	if f.prompt.History == nil {
		return nil
	}
	return f.prompt.History.Markers()
}

// LastExitCode returns the exit code carried by the most recent OSC 133 D
// marker. ok is false without history, without a D marker, or when the
// shell did not report a code.
func (f *OutputFilter) LastExitCode() (code int, ok bool) {
	if f.prompt.History == nil {
		return 0, false
	}
	m := f.prompt.History.Last(MarkerCommandFinished)
	if m == nil || m.ExitCode < 0 {
		return 0, false
	}
	return m.ExitCode, true
}

// Pending returns the number of bytes held back as an incomplete sequence.
func (f *OutputFilter) Pending() int {
	return len(f.remainder)
}

// Reset drops any incomplete sequence.
func (f *OutputFilter) Reset() {
	f.remainder = f.remainder[:0]
}
