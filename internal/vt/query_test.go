package vt

import (
	"reflect"
	"testing"
)

type replyRecorder struct {
	replies []string
}

func (r *replyRecorder) send(s string) { r.replies = append(r.replies, s) }

func TestHandleCoreCsiSequence(t *testing.T) {
	tests := []struct {
		name      string
		seq       string
		xtversion string
		want      string
		handled   bool
	}{
		{"cpr", "\x1b[6n", "", "\x1b[5;12R", true},
		{"xtversion default", "\x1b[>q", "", "\x1bP>|ghostty 1.0\x1b\\", true},
		{"xtversion custom", "\x1b[>q", "restty 0.1", "\x1bP>|restty 0.1\x1b\\", true},
		{"da1", "\x1b[c", "", "\x1b[?1;2c", true},
		{"da1 zero", "\x1b[0c", "", "\x1b[?1;2c", true},
		{"secondary da", "\x1b[>c", "", "", false},
		{"dsr status", "\x1b[5n", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &replyRecorder{}
			cb := &Callbacks{
				SendReply:      rec.send,
				CursorPosition: func() CursorPosition { return CursorPosition{Row: 5, Col: 12} },
			}
			if got := HandleCoreCsiSequence(tt.seq, cb, tt.xtversion); got != tt.handled {
				t.Fatalf("handled = %v, want %v", got, tt.handled)
			}
			if !tt.handled {
				if len(rec.replies) != 0 {
					t.Errorf("unexpected replies %q", rec.replies)
				}
				return
			}
			if len(rec.replies) != 1 || rec.replies[0] != tt.want {
				t.Errorf("replies = %q, want [%q]", rec.replies, tt.want)
			}
		})
	}
}

func TestHandleCoreCsiSequence_CPRWithoutCursor(t *testing.T) {
	cb := &Callbacks{}
	if HandleCoreCsiSequence("\x1b[6n", cb, "") {
		t.Error("CPR without a cursor provider should be left unhandled")
	}
}

func TestHandleWindowOpSequence_Reports(t *testing.T) {
	metrics := WindowMetrics{Rows: 24, Cols: 80, WidthPx: 800, HeightPx: 480, CellWidthPx: 10, CellHeightPx: 20}
	tests := []struct {
		seq  string
		want string
	}{
		{"\x1b[14t", "\x1b[4;480;800t"},
		{"\x1b[16t", "\x1b[6;20;10t"},
		{"\x1b[18t", "\x1b[8;24;80t"},
	}

	for _, tt := range tests {
		rec := &replyRecorder{}
		cb := &Callbacks{
			SendReply:     rec.send,
			WindowMetrics: func() (WindowMetrics, bool) { return metrics, true },
		}
		if !HandleWindowOpSequence(tt.seq, cb) {
			t.Fatalf("%q should be handled", tt.seq)
		}
		if len(rec.replies) != 1 || rec.replies[0] != tt.want {
			t.Errorf("%q replies = %q, want [%q]", tt.seq, rec.replies, tt.want)
		}
	}
}

func TestHandleWindowOpSequence_GenericOps(t *testing.T) {
	var ops []WindowOp
	cb := &Callbacks{WindowOp: func(op WindowOp) { ops = append(ops, op) }}

	if !HandleWindowOpSequence("\x1b[8;40;120t", cb) {
		t.Fatal("resize should be handled when a callback is registered")
	}
	if !HandleWindowOpSequence("\x1b[22;0t", cb) {
		t.Fatal("unknown op should be handled when a callback is registered")
	}
	// No metrics provider: the report falls through to the generic path.
	if !HandleWindowOpSequence("\x1b[18t", cb) {
		t.Fatal("report without metrics should reach the callback")
	}

	want := []WindowOp{
		{Type: WindowOpResize, Rows: 40, Cols: 120, Params: []int{8, 40, 120}, Raw: "\x1b[8;40;120t"},
		{Type: WindowOpUnknown, Params: []int{22, 0}, Raw: "\x1b[22;0t"},
		{Type: WindowOpUnknown, Params: []int{18}, Raw: "\x1b[18t"},
	}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("ops = %+v, want %+v", ops, want)
	}
}

func TestHandleWindowOpSequence_Unhandled(t *testing.T) {
	cb := &Callbacks{}
	for _, seq := range []string{"\x1b[8;40;120t", "\x1b[t", "\x1b[?5t", "\x1b[31m"} {
		if HandleWindowOpSequence(seq, cb) {
			t.Errorf("%q should not be handled without a callback", seq)
		}
	}
}
