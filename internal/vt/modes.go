package vt

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// legacyAltScreen is the original xterm alternate screen mode. x/ansi only
// names its 1047 and 1049 successors.
const legacyAltScreen = 47

// OutputModes tracks the private modes the host needs to know about.
type OutputModes struct {
	BracketedPaste     bool
	FocusReporting     bool
	SynchronizedOutput bool
}

// parsePrivateMode parses a DECSET/DECRST sequence of the form
// ESC [ ? Pm h or ESC [ ? Pm l. Empty parameters are skipped.
func parsePrivateMode(seq string) (codes []int, set bool, ok bool) {
	if len(seq) < 5 || !strings.HasPrefix(seq, "\x1b[?") {
		return nil, false, false
	}
	switch seq[len(seq)-1] {
	case 'h':
		set = true
	case 'l':
		set = false
	default:
		return nil, false, false
	}
	body := seq[3 : len(seq)-1]
	if body == "" {
		return nil, false, false
	}
	for _, field := range strings.Split(body, ";") {
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, false, false
		}
		codes = append(codes, n)
	}
	if len(codes) == 0 {
		return nil, false, false
	}
	return codes, set, true
}

// DeriveAltScreen returns the alternate screen state after seq. Only modes
// 47, 1047 and 1049 change it; anything else returns current.
func DeriveAltScreen(seq string, current bool) bool {
	codes, set, ok := parsePrivateMode(seq)
	if !ok {
		return current
	}
	for _, code := range codes {
		switch code {
		case legacyAltScreen, ansi.ModeAltScreen.Mode(), ansi.ModeAltScreenSaveCursor.Mode():
			current = set
		}
	}
	return current
}

// ApplyTrackedPrivateModes updates state from a DECSET/DECRST sequence and
// reports whether the sequence should be consumed. Bracketed paste and focus
// reporting are consumed. Synchronized output is tracked but left for the
// core so it can batch its own updates.
func ApplyTrackedPrivateModes(seq string, state *OutputModes) bool {
	codes, set, ok := parsePrivateMode(seq)
	if !ok || state == nil {
		return false
	}
	handled := false
	for _, code := range codes {
		switch code {
		case ansi.ModeBracketedPaste.Mode():
			state.BracketedPaste = set
			handled = true
		case ansi.ModeFocusEvent.Mode():
			state.FocusReporting = set
			handled = true
		case ansi.ModeSynchronizedOutput.Mode():
			state.SynchronizedOutput = set
		}
	}
	return handled
}
