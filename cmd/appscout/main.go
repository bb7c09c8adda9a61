package main

import (
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/d-buckner/appscout/internal/config"
)

func main() {
	// Check for subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "list":
			os.Exit(runList(os.Args[2:]))
		case "watch":
			os.Exit(runWatch(os.Args[2:]))
		case "paths":
			os.Exit(runPaths())
		case "-h", "--help", "help":
			usage(os.Stdout)
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
			usage(os.Stderr)
			os.Exit(1)
		}
	}

	// Default: one full enumeration
	os.Exit(runList(nil))
}

func usage(w *os.File) {
	fmt.Fprintln(w, "Usage: appscout <list|watch|paths> [flags]")
	fmt.Fprintln(w, "  list   enumerate installed applications as JSON")
	fmt.Fprintln(w, "  watch  stream application changes as line-delimited JSON")
	fmt.Fprintln(w, "  paths  print the directories the platform backend scans")
}

// newLogger builds the structured logger. Logs go to stderr so stdout stays
// machine-readable.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
