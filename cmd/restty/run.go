package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/Tonksthebear/restty/internal/config"
	"github.com/Tonksthebear/restty/internal/terminal"
)

const logRelPath = "restty/restty.log"

// loadConfig loads the user config and applies the CLI flags on top.
func loadConfig() *config.UserConfig {
	userConfig, err := config.LoadUserConfig()
	if err != nil {
		log.Warn("failed to load config, using defaults", "err", err)
		userConfig = config.DefaultConfig()
	}

	return config.ApplyOverrides(config.Overrides{
		Shell:              shellPath,
		XTVersion:          xtversion,
		Debug:              debugMode,
		LogFile:            logFile,
		NoKittyFiles:       noKittyFiles,
		AllowClipboardRead: allowClipboardRead,
		CellWidth:          cellWidth,
		CellHeight:         cellHeight,
	}, userConfig)
}

// newLogger opens the configured log file. Without one, logs go to fallback,
// or to the XDG state dir when fallback is nil.
func newLogger(cfg *config.UserConfig, fallback io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}

	w := fallback
	closeFn := func() {}
	path := cfg.Log.File
	if path == "" && fallback == nil {
		if path, err = xdg.StateFile(logRelPath); err != nil {
			return nil, nil, fmt.Errorf("failed to get log path: %w", err)
		}
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		// #nosec G304 - log path is user-controlled
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	return logger, closeFn, nil
}

func runInteractive(ctx context.Context, args []string) error {
	cfg := loadConfig()
	logger, closeLog, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLog()
	log.SetDefault(logger)

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return errors.New("restty needs a terminal on stdin; use 'restty filter' for pipes")
	}

	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols, rows = 80, 24
	}

	oldState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(stdinFd, oldState); err != nil {
			logger.Warn("failed to restore terminal", "err", err)
		}
	}()

	pane, err := terminal.NewPane(terminal.Options{
		Config:  cfg,
		Output:  os.Stdout,
		HostTTY: os.Stdout,
		Cols:    cols,
		Rows:    rows,
		Args:    args,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = pane.Close() }()

	stopResize := watchResize(func() {
		c, r, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			return
		}
		if err := pane.Resize(c, r); err != nil {
			logger.Debug("resize failed", "err", err)
		}
	})
	defer stopResize()

	go func() {
		if _, err := io.Copy(pane, os.Stdin); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Debug("input copy ended", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	select {
	case <-pane.Done():
		if err := pane.Wait(ctx); err != nil {
			logger.Info("shell exited", "err", err)
		}
	case <-ctx.Done():
		logger.Info("terminating", "reason", ctx.Err())
	}
	return nil
}
