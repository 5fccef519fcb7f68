package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
)

func TestInitConfig(t *testing.T) {
	t.Cleanup(xdg.Reload)
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CONFIG_DIRS", t.TempDir())
	xdg.Reload()

	path := filepath.Join(home, "restty", "config.toml")

	var out bytes.Buffer
	if err := printConfigPath(&out); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != path {
		t.Errorf("path = %q, want %q", out.String(), path)
	}

	out.Reset()
	if err := initConfig(&out, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Wrote default configuration") {
		t.Errorf("output = %q", out.String())
	}

	if err := os.WriteFile(path, []byte("# mine\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := initConfig(&out, false); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); string(data) != "# mine\n" {
		t.Error("existing config overwritten without --force")
	}

	if err := initConfig(&out, true); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); !strings.HasPrefix(string(data), "# restty configuration file") {
		t.Errorf("forced init wrote %q", data)
	}
}
