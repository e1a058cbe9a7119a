package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/store/internal/config"
	"github.com/vango-dev/store/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cli carries the flags shared by every command.
type cli struct {
	configPath string
	driver     string
}

func main() {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "vstore",
		Short: "Inspect and serve persisted reactive stores",
		Long: `vstore works with the stores declared in vstore.yaml.

It reads and writes persisted values in the configured backend
(memory, redis, sqlite, s3 or etcd) and can serve the declared
stores and derived stores over HTTP and WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to vstore.yaml (default: search from the working directory)")
	rootCmd.PersistentFlags().StringVar(&c.driver, "driver", "", "Override backend.driver from the config")

	rootCmd.AddCommand(
		getCmd(c),
		setCmd(c),
		rmCmd(c),
		clearCmd(c),
		keysCmd(c),
		serveCmd(c),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// loadConfig loads the explicit --config file, or the nearest vstore.yaml,
// or falls back to defaults when none exists.
func (c *cli) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case c.configPath != "":
		loaded, err := config.LoadFile(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		root, err := config.FindProjectRoot(".")
		if err != nil {
			cfg = config.New()
			break
		}
		loaded, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.driver != "" {
		cfg.Backend.Driver = c.driver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section and
// installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}

// printError prints err to stderr, using the long form for coded errors.
func printError(err error) {
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		fmt.Fprintln(os.Stderr, coded.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
}
