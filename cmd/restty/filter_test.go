package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Tonksthebear/restty/internal/config"
)

func TestFilterStream(t *testing.T) {
	cfg := config.DefaultConfig()
	var out, report bytes.Buffer

	in := strings.NewReader("hello\x1b[c\x1b[14t\x1b]9;done\x07\x1b]52;c;aGk=\x07 world")
	if err := filterStream(context.Background(), cfg, log.New(io.Discard), in, &out, &report); err != nil {
		t.Fatal(err)
	}

	if out.String() != "hello world" {
		t.Errorf("output = %q", out.String())
	}
	for _, want := range []string{
		`reply "\x1b[?1;2c"`,
		`reply "\x1b[4;384;640t"`,
		`notification osc9 title="" body="done"`,
		`clipboard "hi"`,
	} {
		if !strings.Contains(report.String(), want) {
			t.Errorf("report missing %s:\n%s", want, report.String())
		}
	}
}

func TestFilterStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := filterStream(ctx, config.DefaultConfig(), log.New(io.Discard), strings.NewReader("x"), io.Discard, io.Discard)
	if err == nil {
		t.Error("expected context error")
	}
}

func TestFilterStream_BadColors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Colors.Foreground = "nope"
	if err := filterStream(context.Background(), cfg, log.New(io.Discard), strings.NewReader(""), io.Discard, io.Discard); err == nil {
		t.Error("expected color error")
	}
}
