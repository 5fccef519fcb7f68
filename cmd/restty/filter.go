package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Tonksthebear/restty/internal/config"
	"github.com/Tonksthebear/restty/internal/terminal"
	"github.com/Tonksthebear/restty/internal/vt"
)

// Grid reported to size queries when filtering a stream.
const (
	filterCols = 80
	filterRows = 24
)

func runFilter(ctx context.Context, in io.Reader, out, report io.Writer) error {
	cfg := loadConfig()
	logger, closeLog, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()
	return filterStream(ctx, cfg, logger, in, out, report)
}

// filterStream copies in to out through the pipeline. Everything the pipeline
// would send elsewhere is described on report, one line per event.
func filterStream(ctx context.Context, cfg *config.UserConfig, logger *log.Logger, in io.Reader, out, report io.Writer) error {
	fg, bg, cursor, err := cfg.Colors.DefaultColors()
	if err != nil {
		return err
	}

	// Replies from clipboard reads arrive on another goroutine.
	var mu sync.Mutex
	reportf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(report, format+"\n", args...)
	}

	clipboard := terminal.NewClipboard(
		config.Enabled(cfg.Clipboard.AllowRead),
		config.Enabled(cfg.Clipboard.AllowWrite),
		func(text string) { reportf("clipboard %q", text) },
	)

	cw, ch := cfg.Terminal.CellWidth, cfg.Terminal.CellHeight
	metrics := vt.WindowMetrics{
		Rows:         filterRows,
		Cols:         filterCols,
		WidthPx:      filterCols * cw,
		HeightPx:     filterRows * ch,
		CellWidthPx:  cw,
		CellHeightPx: ch,
	}

	cb := vt.Callbacks{
		SendReply:      func(reply string) { reportf("reply %q", reply) },
		WindowMetrics:  func() (vt.WindowMetrics, bool) { return metrics, cw > 0 && ch > 0 },
		DefaultColors:  func() vt.DefaultColors { return vt.DefaultColors{Foreground: fg, Background: bg, Cursor: cursor} },
		ClipboardWrite: clipboard.Write,
		ClipboardRead:  clipboard.Read,
		WindowOp:       func(op vt.WindowOp) { reportf("window-op %s %q", op.Type, op.Raw) },
	}
	if config.Enabled(cfg.Notifications.Enabled) {
		cb.DesktopNotification = func(n vt.DesktopNotification) {
			reportf("notification %s title=%q body=%q", n.Source, n.Title, n.Body)
		}
	}

	pipeline := terminal.NewPipeline(terminal.PipelineConfig{
		Callbacks:       cb,
		Logger:          terminal.DebugLogger(logger),
		XTVersion:       cfg.Terminal.XTVersion,
		MarkerHistory:   cfg.Terminal.MarkerHistory,
		ResolveFiles:    config.Enabled(cfg.Kitty.ResolveFiles),
		RemoveTempFiles: config.Enabled(cfg.Kitty.RemoveTempFiles),
		MaxFileBytes:    cfg.Kitty.MaxFileBytes,
	})

	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := io.WriteString(out, pipeline.Process(string(buf[:n]))); werr != nil {
				return fmt.Errorf("failed to write output: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}

	if pending := pipeline.Pending(); pending > 0 {
		logger.Warn("input ended inside an escape sequence", "bytes", pending)
	}
	for _, m := range pipeline.Filter().Markers() {
		logger.Debug("prompt marker", "type", string(rune(m.Type)), "exit", m.ExitCode)
	}
	return nil
}
