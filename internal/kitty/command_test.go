package kitty

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cmd := ParseCommand("a=T,f=100,t=f,q;L3RtcC9pbWcucG5n")

	want := []Param{
		{Key: "a", Value: "T", HasValue: true},
		{Key: "f", Value: "100", HasValue: true},
		{Key: "t", Value: "f", HasValue: true},
		{Key: "q"},
	}
	if !reflect.DeepEqual(cmd.Params, want) {
		t.Errorf("Params = %+v, want %+v", cmd.Params, want)
	}
	if cmd.Payload != "L3RtcC9pbWcucG5n" {
		t.Errorf("Payload = %q", cmd.Payload)
	}
	if cmd.Medium() != MediumFile {
		t.Errorf("Medium = %q, want %q", cmd.Medium(), MediumFile)
	}
}

func TestParseCommand_Empty(t *testing.T) {
	cmd := ParseCommand("")
	if len(cmd.Params) != 0 || cmd.Payload != "" {
		t.Errorf("cmd = %+v", cmd)
	}
	if cmd.Medium() != MediumDirect {
		t.Errorf("default medium = %q", cmd.Medium())
	}

	cmd = ParseCommand(";payload")
	if len(cmd.Params) != 0 || cmd.Payload != "payload" {
		t.Errorf("cmd = %+v", cmd)
	}
}

func TestCommand_SetDeleteOptions(t *testing.T) {
	cmd := ParseCommand("a=T,t=f,m=1,S=10,i=7")

	cmd.Set(KeyMedium, "d")
	cmd.Set(KeyMore, "0")
	cmd.Set("q", "2")
	cmd.Delete(KeySize)

	if v, ok := cmd.Get(KeyMedium); !ok || v != "d" {
		t.Errorf("t = %q, %v", v, ok)
	}
	if _, ok := cmd.Get(KeySize); ok {
		t.Error("S should be deleted")
	}

	want := []string{"a=T", "t=d", "m=0", "i=7", "q=2"}
	if got := cmd.Options(); !reflect.DeepEqual(got, want) {
		t.Errorf("Options = %q, want %q", got, want)
	}
}
