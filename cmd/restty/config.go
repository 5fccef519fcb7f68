package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/Tonksthebear/restty/internal/config"
)

func printConfigPath(out io.Writer) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	_, err = fmt.Fprintln(out, path)
	return err
}

func initConfig(out io.Writer, force bool) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(path); err == nil && !force {
		_, err = fmt.Fprintf(out, "Configuration already exists at %s (use --force to overwrite)\n", path)
		return err
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.WriteConfig(path, config.DefaultConfig()); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
	return err
}
