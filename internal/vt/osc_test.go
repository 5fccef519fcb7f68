package vt

import (
	"encoding/base64"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"
)

func TestDispatchOsc_Notify(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *DesktopNotification
	}{
		{"plain osc9", "9;Build finished", &DesktopNotification{Body: "Build finished", Source: NotificationOSC9, Raw: "9;Build finished"}},
		{"osc9 text starting with digit word", "9;1st place", &DesktopNotification{Body: "1st place", Source: NotificationOSC9, Raw: "9;1st place"}},
		{"conemu progress", "9;4;1;50", nil},
		{"conemu bare code", "9;2", nil},
		{"conemu twelve", "9;12;x", nil},
		{"conemu one", "9;1", nil},
		{"osc9 thirteen is text", "9;13 items", &DesktopNotification{Body: "13 items", Source: NotificationOSC9, Raw: "9;13 items"}},
		{"osc9 empty", "9;", nil},
		{"osc777", "777;notify;Title;Body text", &DesktopNotification{Title: "Title", Body: "Body text", Source: NotificationOSC777, Raw: "777;notify;Title;Body text"}},
		{"osc777 body with semicolons", "777;notify;T;a;b", &DesktopNotification{Title: "T", Body: "a;b", Source: NotificationOSC777, Raw: "777;notify;T;a;b"}},
		{"osc777 missing body", "777;notify;Title", nil},
		{"osc777 missing notify prefix", "777;other;Title;Body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []DesktopNotification
			cb := &Callbacks{DesktopNotification: func(n DesktopNotification) { got = append(got, n) }}
			if !DispatchOsc(tt.body, cb, nil) {
				t.Fatalf("%q should always be consumed", tt.body)
			}
			if tt.want == nil {
				if len(got) != 0 {
					t.Errorf("expected no notification, got %+v", got)
				}
				return
			}
			if len(got) != 1 || got[0] != *tt.want {
				t.Errorf("notifications = %+v, want %+v", got, *tt.want)
			}
		})
	}
}

func TestDispatchOsc_Unhandled(t *testing.T) {
	cb := &Callbacks{}
	for _, body := range []string{
		"8;;https://example.com",
		"0;title",
		"133;A",
		"7;file:///tmp",
		"10;?", // no colors provider
		"11;rgb:0000/0000/0000",
		"x;y",
		"",
	} {
		if DispatchOsc(body, cb, nil) {
			t.Errorf("%q should not be handled", body)
		}
	}
}

func TestDispatchOsc_DefaultColors(t *testing.T) {
	rec := &replyRecorder{}
	cb := &Callbacks{
		SendReply: rec.send,
		DefaultColors: func() DefaultColors {
			return DefaultColors{
				Foreground: color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff},
				Background: color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff},
			}
		},
	}

	if !DispatchOsc("10;?", cb, nil) {
		t.Fatal("fg query should be handled")
	}
	if !DispatchOsc("11;?", cb, nil) {
		t.Fatal("bg query should be handled")
	}
	if DispatchOsc("12;?", cb, nil) {
		t.Error("cursor query without a cursor color should not be handled")
	}

	want := []string{
		"\x1b]10;rgb:ffff/8080/0000\x07",
		"\x1b]11;rgb:1212/3434/5656\x07",
	}
	if len(rec.replies) != len(want) {
		t.Fatalf("replies = %q, want %q", rec.replies, want)
	}
	for i := range want {
		if rec.replies[i] != want[i] {
			t.Errorf("reply %d = %q, want %q", i, rec.replies[i], want[i])
		}
	}
}

func TestDispatchOsc_ClipboardWrite(t *testing.T) {
	var written []string
	cb := &Callbacks{ClipboardWrite: func(text string) error {
		written = append(written, text)
		return nil
	}}

	text := "héllo, 世界 🚀"
	if !DispatchOsc("52;c;"+base64.StdEncoding.EncodeToString([]byte(text)), cb, nil) {
		t.Fatal("clipboard write should be handled")
	}
	if !DispatchOsc("52;c;!!not base64!!", cb, nil) {
		t.Fatal("malformed clipboard write should still be consumed")
	}
	if len(written) != 2 || written[0] != text || written[1] != "" {
		t.Errorf("written = %q", written)
	}
}

func TestDispatchOsc_ClipboardWriteErrorSwallowed(t *testing.T) {
	cb := &Callbacks{ClipboardWrite: func(string) error { return errors.New("denied") }}
	if !DispatchOsc("52;c;aGk=", cb, nil) {
		t.Fatal("clipboard write should be handled even when the callback fails")
	}
}

func TestDispatchOsc_ClipboardRoundTrip(t *testing.T) {
	var (
		mu      sync.Mutex
		stored  string
		replies = make(chan string, 1)
	)
	cb := &Callbacks{
		SendReply: func(s string) { replies <- s },
		ClipboardWrite: func(text string) error {
			mu.Lock()
			defer mu.Unlock()
			stored = text
			return nil
		},
		ClipboardRead: func() (string, bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return stored, true, nil
		},
	}

	text := "multi-byte ✓ ünïcödé"
	DispatchOsc("52;c;"+base64.StdEncoding.EncodeToString([]byte(text)), cb, nil)
	if !DispatchOsc("52;c;?", cb, nil) {
		t.Fatal("clipboard read should be handled")
	}

	select {
	case reply := <-replies:
		want := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\x07"
		if reply != want {
			t.Errorf("reply = %q, want %q", reply, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for clipboard reply")
	}
}

func TestDispatchOsc_ClipboardReadEmptyAndFailure(t *testing.T) {
	replies := make(chan string, 2)
	empty := &Callbacks{
		SendReply:     func(s string) { replies <- s },
		ClipboardRead: func() (string, bool, error) { return "", false, nil },
	}
	DispatchOsc("52;p;?", empty, nil)
	select {
	case reply := <-replies:
		if reply != "\x1b]52;p;\x07" {
			t.Errorf("reply = %q", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for empty clipboard reply")
	}

	done := make(chan struct{})
	failing := &Callbacks{
		SendReply: func(s string) { replies <- s },
		ClipboardRead: func() (string, bool, error) {
			defer close(done)
			return "", false, errors.New("no clipboard")
		},
	}
	DispatchOsc("52;c;?", failing, nil)
	<-done
	select {
	case reply := <-replies:
		t.Errorf("failed read must not reply, got %q", reply)
	case <-time.After(50 * time.Millisecond):
	}
}
