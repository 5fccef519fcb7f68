package vt

import (
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
)

func TestObservePromptSequence_Transitions(t *testing.T) {
	tests := []struct {
		body        string
		start       PromptState
		wantInput   bool
		wantRunning bool
	}{
		{"133;A", PromptState{CommandRunning: true}, true, false},
		{"133;B", PromptState{}, true, false},
		{"133;I", PromptState{CommandRunning: true}, true, false},
		{"133;C", PromptState{PromptInputActive: true}, false, true},
		{"133;D;0", PromptState{CommandRunning: true}, false, false},
		{"133;P", PromptState{PromptInputActive: true, CommandRunning: true}, true, true},
		{"133;P", PromptState{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			state := tt.start
			ObservePromptSequence(tt.body, &state)
			if !state.SemanticPromptSeen {
				t.Error("SemanticPromptSeen should be true")
			}
			if state.PromptInputActive != tt.wantInput {
				t.Errorf("PromptInputActive = %v, want %v", state.PromptInputActive, tt.wantInput)
			}
			if state.CommandRunning != tt.wantRunning {
				t.Errorf("CommandRunning = %v, want %v", state.CommandRunning, tt.wantRunning)
			}
		})
	}
}

func TestObservePromptSequence_Ignored(t *testing.T) {
	for _, body := range []string{"133;", "133", "13;A", "9;A", "1330;A", "133;;", "133;;foo=bar", "133;;7"} {
		var state PromptState
		ObservePromptSequence(body, &state)
		if state != (PromptState{}) {
			t.Errorf("%q changed state to %+v", body, state)
		}
	}
	ObservePromptSequence("133;A", nil)
}

func TestObservePromptSequence_ClickEvents(t *testing.T) {
	var state PromptState

	ObservePromptSequence("133;A;click_events=1", &state)
	if !state.PromptClickEvents {
		t.Fatal("click_events=1 should enable prompt clicks")
	}
	if !IsPromptClickEventsEnabled(&state, false) {
		t.Error("clicks should be enabled at the prompt")
	}
	if IsPromptClickEventsEnabled(&state, true) {
		t.Error("clicks must be disabled on the alternate screen")
	}

	ObservePromptSequence("133;C", &state)
	if IsPromptClickEventsEnabled(&state, false) {
		t.Error("clicks must be disabled while a command runs")
	}

	ObservePromptSequence("133;D;0", &state)
	ObservePromptSequence("133;A", &state)
	if !IsPromptClickEventsEnabled(&state, false) {
		t.Error("click_events should persist across prompts")
	}

	ObservePromptSequence("133;P;click_events=0", &state)
	if state.PromptClickEvents {
		t.Error("click_events=0 should disable prompt clicks regardless of action")
	}
	if IsPromptClickEventsEnabled(nil, false) {
		t.Error("nil state is never enabled")
	}
}

func TestObservePromptSequence_OptionsWithoutAction(t *testing.T) {
	state := PromptState{History: NewSemanticMarkerList(10)}

	ObservePromptSequence("133;;click_events=1", &state)
	if !state.PromptClickEvents {
		t.Error("click_events=1 should apply without an action")
	}
	if state.SemanticPromptSeen || state.PromptInputActive || state.CommandRunning {
		t.Errorf("flags changed without an action: %+v", state)
	}
	if n := len(state.History.Markers()); n != 0 {
		t.Errorf("recorded %d markers without an action", n)
	}

	ObservePromptSequence("133;;click_events=0", &state)
	if state.PromptClickEvents {
		t.Error("click_events=0 should apply without an action")
	}
}

func TestObservePromptSequence_History(t *testing.T) {
	state := PromptState{History: NewSemanticMarkerList(10)}

	for _, body := range []string{"133;A", "133;B", "133;C", "133;D;127", "133;A", "133;D"} {
		ObservePromptSequence(body, &state)
	}

	if got := len(state.History.Markers()); got != 6 {
		t.Fatalf("recorded %d markers, want 6", got)
	}
	last := state.History.Last(MarkerCommandFinished)
	if last == nil || last.ExitCode != -1 {
		t.Errorf("last D marker = %+v, want unknown exit code", last)
	}
	markers := state.History.Markers()
	if markers[3].Type != MarkerCommandFinished || markers[3].ExitCode != 127 {
		t.Errorf("markers[3] = %+v, want D with exit 127", markers[3])
	}
	if state.History.Last('Z') != nil {
		t.Error("Last of an unseen type should be nil")
	}
}

func TestSemanticMarkerList_Bounded(t *testing.T) {
	l := NewSemanticMarkerList(10)
	for range 25 {
		l.Add(SemanticMarker{Type: MarkerPromptStart})
	}
	if got := len(l.Markers()); got > 10 {
		t.Errorf("kept %d markers, exceeds capacity", got)
	}
}

func TestEncodePromptClickEvent(t *testing.T) {
	enabled := PromptState{
		SemanticPromptSeen: true,
		PromptClickEvents:  true,
		PromptInputActive:  true,
	}

	tests := []struct {
		name      string
		state     PromptState
		altScreen bool
		cell      uv.Position
		want      string
	}{
		{"origin", enabled, false, uv.Pos(0, 0), "\x1b[<0;1;1M"},
		{"column 10 row 3", enabled, false, uv.Pos(9, 2), "\x1b[<0;10;3M"},
		{"alt screen", enabled, true, uv.Pos(1, 1), ""},
		{"disabled", PromptState{SemanticPromptSeen: true, PromptInputActive: true}, false, uv.Pos(1, 1), ""},
		{"negative cell", enabled, false, uv.Pos(-1, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state
			if got := EncodePromptClickEvent(&state, tt.altScreen, tt.cell); got != tt.want {
				t.Errorf("EncodePromptClickEvent = %q, want %q", got, tt.want)
			}
		})
	}
}
