//go:build windows

package terminal

import (
	"errors"
	"os/exec"

	"github.com/charmbracelet/x/xpty"
)

var errUnsupported = errors.New("not supported on this platform")

func setupPTYCommand(*exec.Cmd) {}

func hostWinsize(uintptr) (cols, rows, width, height int, err error) {
	return 0, 0, 0, 0, errUnsupported
}

func setPtyPixelSize(p xpty.Pty, cols, rows, _, _ int) error {
	return p.Resize(cols, rows)
}

func releaseSlave(xpty.Pty) {}
