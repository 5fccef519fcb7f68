package terminal

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tonksthebear/restty/internal/vt"
)

func kittyFile(medium, path string) string {
	return "\x1b_Ga=T,f=100,t=" + medium + ";" + base64.StdEncoding.EncodeToString([]byte(path)) + "\x1b\\"
}

func TestPipeline_RewritesThenFilters(t *testing.T) {
	var replies []string
	p := NewPipeline(PipelineConfig{
		Callbacks:    vt.Callbacks{SendReply: func(r string) { replies = append(replies, r) }},
		ResolveFiles: true,
		ReadFile: func(path string) ([]byte, error) {
			if path != "/img/cat.png" {
				return nil, errors.New("unexpected path " + path)
			}
			return []byte("PNGDATA"), nil
		},
	})

	got := p.Process("x" + kittyFile("f", "/img/cat.png") + "\x1b[cy")

	want := "x\x1b_Ga=T,f=100,t=d,m=0;UE5HREFUQQ==\x1b\\y"
	if got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
	if len(replies) != 1 {
		t.Errorf("replies = %q", replies)
	}
}

func TestPipeline_ResolveFilesDisabled(t *testing.T) {
	p := NewPipeline(PipelineConfig{
		ReadFile: func(string) ([]byte, error) {
			t.Fatal("reader must not be called")
			return nil, nil
		},
	})

	in := kittyFile("f", "/img/cat.png")
	if got := p.Process(in); got != in {
		t.Errorf("Process = %q, want %q", got, in)
	}
}

func TestPipeline_RemovesTempFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty-graphics-protocol-1.png")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewPipeline(PipelineConfig{ResolveFiles: true, RemoveTempFiles: true})
	got := p.Process(kittyFile("t", path))

	if want := "\x1b_Ga=T,f=100,t=d,m=0;YWJj\x1b\\"; got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still present: %v", err)
	}
}

func TestPipeline_MaxFileBytes(t *testing.T) {
	p := NewPipeline(PipelineConfig{
		ResolveFiles: true,
		MaxFileBytes: 2,
		ReadFile:     func(string) ([]byte, error) { return []byte("abc"), nil },
	})

	in := kittyFile("f", "/big")
	if got := p.Process(in); got != in {
		t.Errorf("oversized file should stay unresolved, got %q", got)
	}
}

func TestPipeline_PendingAndReset(t *testing.T) {
	p := NewPipeline(PipelineConfig{ResolveFiles: true})

	partial := "\x1b_Ga=T,t=f;L3Rt"
	if got := p.Process(partial); got != "" {
		t.Errorf("partial Process = %q", got)
	}
	if p.Pending() != len(partial) {
		t.Errorf("Pending = %d, want %d", p.Pending(), len(partial))
	}

	p.Reset()
	if p.Pending() != 0 {
		t.Errorf("Pending after Reset = %d", p.Pending())
	}
	if got := p.Process("plain"); got != "plain" {
		t.Errorf("Process after Reset = %q", got)
	}
}

func TestPipeline_MarkerHistory(t *testing.T) {
	none := NewPipeline(PipelineConfig{})
	none.Process("\x1b]133;A\x07")
	if none.Filter().Markers() != nil {
		t.Error("history should be off by default")
	}

	p := NewPipeline(PipelineConfig{MarkerHistory: 2})
	p.Process("\x1b]133;A\x07\x1b]133;C\x07\x1b]133;D;0\x07")
	markers := p.Filter().Markers()
	if len(markers) != 2 || markers[1].ExitCode != 0 {
		t.Errorf("markers = %+v", markers)
	}
}
