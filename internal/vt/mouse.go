package vt

import (
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
)

// EncodePromptClickEvent encodes a left click on the zero-based cell as an
// SGR mouse press, which shells with click_events=1 use to move the cursor
// within the prompt. It returns an empty string when prompt clicks are not
// currently allowed; the caller must then send nothing.
func EncodePromptClickEvent(state *PromptState, altScreen bool, cell uv.Position) string {
	if !IsPromptClickEventsEnabled(state, altScreen) {
		return ""
	}
	if cell.X < 0 || cell.Y < 0 {
		return ""
	}
	b := ansi.EncodeMouseButton(ansi.MouseLeft, false, false, false, false)
	return ansi.MouseSgr(b, cell.X, cell.Y, false)
}
