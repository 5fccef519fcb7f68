package vt

import (
	"strconv"
	"strings"
	"sync"
)

// SemanticMarkerType represents an OSC 133 semantic prompt action.
type SemanticMarkerType byte

const (
	// MarkerPromptStart is 'A' - prompt start
	MarkerPromptStart SemanticMarkerType = 'A'
	// MarkerCommandStart is 'B' - command input start (after prompt)
	MarkerCommandStart SemanticMarkerType = 'B'
	// MarkerCommandExecuted is 'C' - command execution start (output begins)
	MarkerCommandExecuted SemanticMarkerType = 'C'
	// MarkerCommandFinished is 'D' - command finished (exit code available)
	MarkerCommandFinished SemanticMarkerType = 'D'
	// MarkerPromptInput is 'I' - input region start (kitty/ghostty extension)
	MarkerPromptInput SemanticMarkerType = 'I'
	// MarkerPromptContinuation is 'P' - prompt continuation line
	MarkerPromptContinuation SemanticMarkerType = 'P'
)

// SemanticMarker is a single OSC 133 observation.
type SemanticMarker struct {
	Type     SemanticMarkerType
	ExitCode int // only meaningful for 'D', -1 = unknown
}

// SemanticMarkerList is a thread-safe, bounded list of semantic markers.
type SemanticMarkerList struct {
	mu       sync.Mutex
	markers  []SemanticMarker
	maxItems int
}

// NewSemanticMarkerList creates a new marker list with the given capacity.
func NewSemanticMarkerList(maxItems int) *SemanticMarkerList {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &SemanticMarkerList{
		markers:  make([]SemanticMarker, 0, 64),
		maxItems: maxItems,
	}
}

// Add appends a marker to the list, discarding the oldest if at capacity.
func (l *SemanticMarkerList) Add(m SemanticMarker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.markers) >= l.maxItems {
		// Discard oldest 10% to avoid frequent shifts
		trim := max(l.maxItems/10, 1)
		l.markers = l.markers[trim:]
	}
	l.markers = append(l.markers, m)
}

// Markers returns a copy of all markers.
func (l *SemanticMarkerList) Markers() []SemanticMarker {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SemanticMarker, len(l.markers))
	copy(out, l.markers)
	return out
}

// Last returns the most recent marker of the given type, or nil if none.
func (l *SemanticMarkerList) Last(t SemanticMarkerType) *SemanticMarker {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.markers) - 1; i >= 0; i-- {
		if l.markers[i].Type == t {
			m := l.markers[i]
			return &m
		}
	}
	return nil
}

// PromptState is the per-pane shell integration state. The flags move
// independently; one observation may change several of them.
type PromptState struct {
	SemanticPromptSeen bool
	PromptClickEvents  bool
	PromptInputActive  bool
	CommandRunning     bool

	// History, when set, records every observed marker.
	History *SemanticMarkerList
}

// ObservePromptSequence updates state from an OSC body. Bodies that are not
// OSC 133 are ignored. A payload with no action letter only applies its
// options.
func ObservePromptSequence(body string, state *PromptState) {
	if state == nil {
		return
	}
	payload, ok := strings.CutPrefix(body, strconv.Itoa(oscSemanticPrompt)+";")
	if !ok || payload == "" {
		return
	}

	fields := strings.Split(payload, ";")
	// An empty action field still carries options.
	var action SemanticMarkerType
	if fields[0] != "" {
		action = SemanticMarkerType(fields[0][0])
	}

	switch action {
	case MarkerPromptStart, MarkerCommandStart, MarkerPromptInput:
		state.SemanticPromptSeen = true
		state.PromptInputActive = true
		state.CommandRunning = false
	case MarkerCommandExecuted:
		state.SemanticPromptSeen = true
		state.PromptInputActive = false
		state.CommandRunning = true
	case MarkerCommandFinished:
		state.SemanticPromptSeen = true
		state.PromptInputActive = false
		state.CommandRunning = false
	case MarkerPromptContinuation:
		state.SemanticPromptSeen = true
	}

	exitCode := -1
	for i, field := range fields[1:] {
		key, value, hasValue := strings.Cut(field, "=")
		if !hasValue {
			// D;<code> carries the exit status as a bare field.
			if i == 0 && action == MarkerCommandFinished {
				if n, err := strconv.Atoi(field); err == nil {
					exitCode = n
				}
			}
			continue
		}
		if key == "click_events" {
			switch value {
			case "0":
				state.PromptClickEvents = false
			case "1":
				state.PromptClickEvents = true
			}
		}
	}

	if state.History != nil {
		switch action {
		case MarkerPromptStart, MarkerCommandStart, MarkerCommandExecuted,
			MarkerCommandFinished, MarkerPromptInput, MarkerPromptContinuation:
			state.History.Add(SemanticMarker{Type: action, ExitCode: exitCode})
		}
	}
}

// IsPromptClickEventsEnabled reports whether a click may be turned into a
// cursor-move request for the shell prompt.
func IsPromptClickEventsEnabled(state *PromptState, altScreen bool) bool {
	return state != nil &&
		state.SemanticPromptSeen &&
		state.PromptClickEvents &&
		state.PromptInputActive &&
		!state.CommandRunning &&
		!altScreen
}
