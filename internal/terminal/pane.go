package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/xpty"
	"github.com/google/uuid"

	"github.com/Tonksthebear/restty/internal/config"
	"github.com/Tonksthebear/restty/internal/vt"
)

const readBufferSize = 32 * 1024

// Options configures a Pane.
type Options struct {
	// Config supplies shell, metrics fallback, colors and policies.
	// Nil uses config.DefaultConfig.
	Config *config.UserConfig

	// Output receives the filtered pane output. Defaults to os.Stdout.
	Output io.Writer

	// HostTTY is queried for the host's pixel size. Nil falls back to the
	// configured cell size.
	HostTTY *os.File

	// Cols and Rows are the initial grid size.
	Cols int
	Rows int

	// Args are passed to the shell.
	Args []string
	// Env is appended to the inherited environment.
	Env []string

	// CursorPosition answers CPR. Nil leaves CPR to the host terminal.
	CursorPosition func() vt.CursorPosition

	Logger *log.Logger
}

// State is a snapshot of what the output filter tracks for a pane.
type State struct {
	Modes     vt.OutputModes
	AltScreen bool
	Prompt    vt.PromptState

	// LastExitCode is the code of the most recent OSC 133 D marker that
	// carried one. HasExitCode is false until such a marker arrives.
	LastExitCode int
	HasExitCode  bool
}

// Pane is a shell running on a PTY. Its output flows through the Kitty media
// rewriter and the output filter to Output; replies are queued and written
// back into the PTY by their own goroutine.
type Pane struct {
	ID    string
	Shell string

	cfg       *config.UserConfig
	logger    *log.Logger
	out       *HostOutput
	hostTTY   *os.File
	clipboard *Clipboard
	colors    vt.DefaultColors
	pipeline  *Pipeline

	pty xpty.Pty
	cmd *exec.Cmd

	sizeMu sync.RWMutex
	cols   int
	rows   int

	stateMu sync.RWMutex
	state   State

	// replyMu guards pending. writeMu serializes PTY writes.
	replyMu   sync.Mutex
	pending   []string
	replyWake chan struct{}
	writeMu   sync.Mutex
	stop      chan struct{}
	closed    atomic.Bool

	cancel    context.CancelFunc
	ioWg      sync.WaitGroup
	exited    chan struct{}
	exitErr   error
	closeOnce sync.Once
}

// debugLogger routes core diagnostics to debug level.
type debugLogger struct{ l *log.Logger }

func (d debugLogger) Printf(format string, v ...any) { d.l.Debugf(format, v...) }

// DebugLogger adapts l for the pipeline, which only logs at debug level.
func DebugLogger(l *log.Logger) vt.Logger {
	return debugLogger{l}
}

// NewPane spawns the configured shell and starts pumping its output.
func NewPane(opts Options) (*Pane, error) {
	p, err := newPane(opts)
	if err != nil {
		return nil, err
	}
	if err := p.start(opts.Args, opts.Env); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// newPane wires everything except the process.
func newPane(opts Options) (*Pane, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	fg, bg, cursor, err := cfg.Colors.DefaultColors()
	if err != nil {
		return nil, fmt.Errorf("failed to parse colors: %w", err)
	}

	id := uuid.New().String()
	p := &Pane{
		ID:      id,
		Shell:   detectShell(cfg.Terminal.Shell),
		cfg:     cfg,
		out:     NewHostOutput(out),
		hostTTY: opts.HostTTY,
		colors:  vt.DefaultColors{Foreground: fg, Background: bg, Cursor: cursor},
		cols:      max(opts.Cols, 1),
		rows:      max(opts.Rows, 1),
		exited:    make(chan struct{}),
		replyWake: make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	p.logger = logger.WithPrefix("pane " + id[:8])

	var onWrite func(string)
	if config.Enabled(cfg.Clipboard.ForwardToHost) {
		onWrite = func(text string) {
			if err := p.out.ForwardClipboard(text); err != nil {
				p.logger.Debug("clipboard forward failed", "err", err)
			}
		}
	}
	p.clipboard = NewClipboard(
		config.Enabled(cfg.Clipboard.AllowRead),
		config.Enabled(cfg.Clipboard.AllowWrite),
		onWrite,
	)

	cb := vt.Callbacks{
		SendReply:           p.sendReply,
		CursorPosition:      opts.CursorPosition,
		WindowMetrics:       p.metrics,
		DefaultColors:       func() vt.DefaultColors { return p.colors },
		ClipboardWrite:      p.clipboard.Write,
		ClipboardRead:       p.clipboard.Read,
		WindowOp:            p.handleWindowOp,
		DesktopNotification: p.handleNotification,
	}
	p.pipeline = NewPipeline(PipelineConfig{
		Callbacks:       cb,
		Logger:          DebugLogger(p.logger),
		XTVersion:       cfg.Terminal.XTVersion,
		MarkerHistory:   cfg.Terminal.MarkerHistory,
		ResolveFiles:    config.Enabled(cfg.Kitty.ResolveFiles),
		RemoveTempFiles: config.Enabled(cfg.Kitty.RemoveTempFiles),
		MaxFileBytes:    cfg.Kitty.MaxFileBytes,
	})
	p.snapshot()

	go p.writeReplies()
	return p, nil
}

func (p *Pane) start(args, env []string) error {
	// #nosec G204 - shell is intentionally user-controlled
	cmd := exec.Command(p.Shell, args...)
	cmd.Env = append(os.Environ(),
		"TERM_PROGRAM=restty",
		"RESTTY_PANE_ID="+p.ID,
	)
	if os.Getenv("TERM") == "" {
		cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	}
	cmd.Env = append(cmd.Env, env...)

	cols, rows := p.Size()
	ptyInstance, err := xpty.NewPty(cols, rows)
	if err != nil {
		return fmt.Errorf("failed to open pty: %w", err)
	}

	setupPTYCommand(cmd)
	if err := ptyInstance.Start(cmd); err != nil {
		_ = ptyInstance.Close()
		return fmt.Errorf("failed to start %s: %w", p.Shell, err)
	}
	releaseSlave(ptyInstance)

	p.pty = ptyInstance
	p.cmd = cmd
	p.applyPixelSize(cols, rows)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.logger.Info("pane started", "shell", p.Shell, "pid", cmd.Process.Pid, "size", fmt.Sprintf("%dx%d", cols, rows))

	p.ioWg.Add(1)
	go p.readLoop()

	go func() {
		err := xpty.WaitProcess(ctx, cmd)
		// Let the reader drain what the shell wrote before exiting.
		p.ioWg.Wait()
		p.exitErr = err
		p.logger.Info("pane exited", "err", err)
		close(p.exited)
	}()
	return nil
}

func (p *Pane) readLoop() {
	defer p.ioWg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := p.pty.Read(buf)
		if n > 0 {
			p.handleOutput(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !p.closed.Load() {
				p.logger.Debug("pty read ended", "err", err)
			}
			if pending := p.pipeline.Pending(); pending > 0 {
				p.logger.Debug("dropping incomplete sequence", "bytes", pending)
			}
			return
		}
	}
}

// handleOutput runs one chunk of PTY output through the pipeline.
func (p *Pane) handleOutput(data []byte) {
	out := p.pipeline.Process(string(data))
	p.snapshot()
	if out == "" {
		return
	}
	if _, err := p.out.WriteString(out); err != nil {
		p.logger.Debug("output write failed", "err", err)
	}
}

// snapshot publishes the filter state for readers outside the output
// goroutine.
func (p *Pane) snapshot() {
	f := p.pipeline.Filter()
	s := State{
		Modes:     f.Modes(),
		AltScreen: f.AltScreen(),
		Prompt:    f.PromptState(),
	}
	s.LastExitCode, s.HasExitCode = f.LastExitCode()

	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}

// sendReply queues a reply for the PTY without blocking the output pump.
// Replies that arrive after Close, such as a slow clipboard read, are
// dropped.
func (p *Pane) sendReply(reply string) {
	p.replyMu.Lock()
	if p.closed.Load() {
		p.replyMu.Unlock()
		p.logger.Debug("dropping reply", "reply", fmt.Sprintf("%q", reply))
		return
	}
	p.pending = append(p.pending, reply)
	p.replyMu.Unlock()

	select {
	case p.replyWake <- struct{}{}:
	default:
	}
}

// writeReplies drains queued replies in order until Close.
func (p *Pane) writeReplies() {
	for {
		select {
		case <-p.stop:
			return
		case <-p.replyWake:
		}
		for {
			p.replyMu.Lock()
			batch := p.pending
			p.pending = nil
			p.replyMu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, reply := range batch {
				p.writeReply(reply)
			}
		}
	}
}

func (p *Pane) writeReply(reply string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() || p.pty == nil {
		return
	}
	if _, err := p.pty.Write([]byte(reply)); err != nil {
		p.logger.Debug("reply write failed", "err", err)
	}
}

// Write sends user input to the shell.
func (p *Pane) Write(input []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() || p.pty == nil {
		return 0, os.ErrClosed
	}
	n, err := p.pty.Write(input)
	if err != nil {
		return n, fmt.Errorf("failed to write to pty: %w", err)
	}
	return n, nil
}

// Size returns the grid size.
func (p *Pane) Size() (cols, rows int) {
	p.sizeMu.RLock()
	defer p.sizeMu.RUnlock()
	return p.cols, p.rows
}

// Resize changes the grid size and the PTY winsize.
func (p *Pane) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("invalid size %dx%d", cols, rows)
	}
	p.sizeMu.Lock()
	changed := p.cols != cols || p.rows != rows
	p.cols, p.rows = cols, rows
	p.sizeMu.Unlock()

	if !changed || p.pty == nil {
		return nil
	}
	if err := p.pty.Resize(cols, rows); err != nil {
		return fmt.Errorf("failed to resize pty: %w", err)
	}
	p.applyPixelSize(cols, rows)
	return nil
}

func (p *Pane) applyPixelSize(cols, rows int) {
	cw, ch := p.cellSize()
	if err := setPtyPixelSize(p.pty, cols, rows, cols*cw, rows*ch); err != nil {
		p.logger.Debug("failed to set pixel size", "err", err)
	}
}

// cellSize prefers the host terminal's reported pixel size and falls back
// to the configured cell size.
func (p *Pane) cellSize() (width, height int) {
	if p.hostTTY != nil {
		cols, rows, w, h, err := hostWinsize(p.hostTTY.Fd())
		if err == nil && cols > 0 && rows > 0 && w > 0 && h > 0 {
			return w / cols, h / rows
		}
	}
	return p.cfg.Terminal.CellWidth, p.cfg.Terminal.CellHeight
}

func (p *Pane) metrics() (vt.WindowMetrics, bool) {
	cols, rows := p.Size()
	cw, ch := p.cellSize()
	if cw <= 0 || ch <= 0 {
		return vt.WindowMetrics{}, false
	}
	return vt.WindowMetrics{
		Rows:         rows,
		Cols:         cols,
		WidthPx:      cols * cw,
		HeightPx:     rows * ch,
		CellWidthPx:  cw,
		CellHeightPx: ch,
	}, true
}

func (p *Pane) handleWindowOp(op vt.WindowOp) {
	switch op.Type {
	case vt.WindowOpResize:
		cols, rows := p.Size()
		if op.Cols > 0 {
			cols = op.Cols
		}
		if op.Rows > 0 {
			rows = op.Rows
		}
		if err := p.Resize(cols, rows); err != nil {
			p.logger.Debug("resize request failed", "err", err)
		}
	default:
		// The host terminal may know what to do with it.
		if _, err := p.out.WriteString(op.Raw); err != nil {
			p.logger.Debug("window op forward failed", "err", err)
		}
	}
}

func (p *Pane) handleNotification(n vt.DesktopNotification) {
	if !config.Enabled(p.cfg.Notifications.Enabled) {
		return
	}
	p.logger.Info("notification", "source", n.Source, "title", n.Title, "body", n.Body)
	if !config.Enabled(p.cfg.Notifications.ForwardToHost) {
		return
	}
	if err := p.out.ForwardNotification(n); err != nil {
		p.logger.Debug("notification forward failed", "err", err)
	}
}

// Clipboard returns the pane clipboard.
func (p *Pane) Clipboard() *Clipboard {
	return p.clipboard
}

// State returns the filter state as of the last processed chunk. It is safe
// to call from any goroutine.
func (p *Pane) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Markers returns the recorded OSC 133 markers, if history is enabled.
func (p *Pane) Markers() []vt.SemanticMarker {
	history := p.State().Prompt.History
	if history == nil {
		return nil
	}
	return history.Markers()
}

// EncodePromptClick encodes a click on the zero-based cell for the shell
// prompt, or returns an empty string when prompt clicks are disabled.
func (p *Pane) EncodePromptClick(cell uv.Position) string {
	s := p.State()
	return vt.EncodePromptClickEvent(&s.Prompt, s.AltScreen, cell)
}

// ProcessName returns the name of the foreground program in the pane.
func (p *Pane) ProcessName() (string, error) {
	if p.cmd == nil || p.cmd.Process == nil {
		return "", errors.New("pane has no process")
	}
	return foregroundProcessName(p.cmd.Process.Pid)
}

// Done is closed once the shell has exited and its output is drained.
func (p *Pane) Done() <-chan struct{} {
	return p.exited
}

// Wait blocks until the shell exits or ctx is done.
func (p *Pane) Wait(ctx context.Context) error {
	select {
	case <-p.exited:
		return p.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close kills the shell and releases the PTY. Pending replies are discarded.
func (p *Pane) Close() error {
	var err error
	p.closeOnce.Do(func() {
		// A reply blocked on a full PTY is released by closing the PTY below.
		p.replyMu.Lock()
		p.closed.Store(true)
		p.pending = nil
		p.replyMu.Unlock()
		close(p.stop)

		if p.cmd != nil && p.cmd.Process != nil {
			if kerr := p.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = fmt.Errorf("failed to kill shell: %w", kerr)
			}
		}
		if p.pty != nil {
			_ = p.pty.Close()
		}
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Debug("pane closed")
	})
	return err
}

func detectShell(configured string) string {
	if configured != "" {
		if _, err := exec.LookPath(configured); err == nil {
			return configured
		}
		log.Warn("configured shell not found, falling back", "shell", configured)
	}

	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}

	if runtime.GOOS == "windows" {
		for _, shell := range []string{"pwsh.exe", "powershell.exe", "cmd.exe"} {
			if _, err := exec.LookPath(shell); err == nil {
				return shell
			}
		}
		return "cmd.exe"
	}

	for _, shell := range []string{"/bin/bash", "/bin/zsh", "/bin/fish", "/bin/sh"} {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}
