//go:build !windows

package terminal

import (
	"os/exec"
	"syscall"

	"github.com/charmbracelet/x/xpty"
	"golang.org/x/sys/unix"
)

// setupPTYCommand makes the PTY the controlling terminal of cmd's session.
func setupPTYCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}
}

// hostWinsize reads the grid and pixel size of the terminal on fd.
func hostWinsize(fd uintptr) (cols, rows, width, height int, err error) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}

// setPtyPixelSize updates the PTY winsize including the pixel fields, so
// TIOCGWINSZ in the child reports pixels too.
func setPtyPixelSize(p xpty.Pty, cols, rows, width, height int) error {
	if up, ok := p.(*xpty.UnixPty); ok {
		return up.SetWinsize(cols, rows, width, height)
	}
	return p.Resize(cols, rows)
}

// releaseSlave closes the parent's copy of the slave end once the child has
// it, so master reads fail with EIO when the child exits.
func releaseSlave(p xpty.Pty) {
	if up, ok := p.(*xpty.UnixPty); ok {
		_ = up.Slave().Close()
	}
}
