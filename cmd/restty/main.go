// Package main implements restty, a terminal host that runs a shell behind
// an output interception layer. The layer answers terminal queries, routes
// clipboard and notification requests to the host terminal, tracks shell
// prompt markers and inlines Kitty graphics sent as file references.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Global flags
var (
	debugMode          bool
	logFile            string
	shellPath          string
	xtversion          string
	noKittyFiles       bool
	allowClipboardRead bool
	cellWidth          int
	cellHeight         int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "restty",
		Short: "Terminal host with query answering and Kitty file inlining",
		Long: `restty - terminal host with an output interception layer

restty runs your shell on a PTY and sits between it and your terminal. It
answers cursor, device attribute, window size and color queries, keeps the
clipboard and desktop notifications working across the PTY boundary, tracks
OSC 133 shell prompt markers and turns Kitty graphics transfers that point at
local files into direct transfers your terminal can display.`,
		Example: `  # Run your shell inside restty
  restty

  # Run a specific shell with debug logging
  restty run --shell /bin/zsh --debug

  # Filter a captured stream, replies go to stderr
  restty filter < session.log > clean.log

  # Compute draw rects for a Kitty placement snapshot
  restty placements frame.toml

  # Show where the configuration lives
  restty config path`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), args)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file (default: from config or the XDG state dir)")
	rootCmd.PersistentFlags().StringVar(&shellPath, "shell", "", "Shell to run (default: from config or $SHELL)")
	rootCmd.PersistentFlags().StringVar(&xtversion, "xtversion", "", "Name reported to XTVERSION queries (default: from config or \"ghostty 1.0\")")
	rootCmd.PersistentFlags().BoolVar(&noKittyFiles, "no-kitty-files", false, "Leave Kitty file and temp-file transfers untouched")
	rootCmd.PersistentFlags().BoolVar(&allowClipboardRead, "allow-clipboard-read", false, "Let programs read the clipboard with OSC 52")
	rootCmd.PersistentFlags().IntVar(&cellWidth, "cell-width", 0, "Cell width in pixels when the terminal does not report one")
	rootCmd.PersistentFlags().IntVar(&cellHeight, "cell-height", 0, "Cell height in pixels when the terminal does not report one")

	runCmd := &cobra.Command{
		Use:   "run [-- shell args...]",
		Short: "Run a shell inside restty",
		Long: `Run a shell inside restty

The shell is taken from --shell, the config file, $SHELL and finally /bin/sh.
Arguments after -- are passed to the shell.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), args)
		},
	}

	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter a terminal output stream",
		Long: `Filter a terminal output stream from stdin to stdout

Query replies that would normally go back to the program are written to
stderr. Clipboard writes and notifications are reported there too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd.Context(), os.Stdin, os.Stdout, os.Stderr)
		},
	}

	placementsCmd := &cobra.Command{
		Use:   "placements FILE",
		Short: "Compute draw plans for a Kitty placement snapshot",
		Long: `Compute draw plans for a Kitty placement snapshot

FILE is a TOML file with a [cell] size, [[images]] and [[placements]]. Images
are decoded to learn their real size, then each image gets either a list of
slices or one reconstructed rect. The result is printed as TOML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlacements(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}

	var forceInit bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage restty configuration",
		Long:  `Manage restty configuration file and settings`,
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		Long:  `Print the path to the restty configuration file`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printConfigPath(cmd.OutOrStdout())
		},
	}

	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long: `Write the default configuration file

An existing file is left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd.OutOrStdout(), forceInit)
		},
	}
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration")

	configCmd.AddCommand(configPathCmd, configInitCmd)
	rootCmd.AddCommand(runCmd, filterCmd, placementsCmd, configCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s\nBy: %s", version, commit, date, builtBy)),
	); err != nil {
		os.Exit(1)
	}
}
