package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/d-buckner/appscout"
	"codeberg.org/d-buckner/appscout/internal/config"
	"codeberg.org/d-buckner/appscout/internal/system"
)

// runList handles the "list" subcommand: one full enumeration, printed as a
// JSON array on stdout. With -icons, each application's icon is decoded and
// exported alongside.
func runList(args []string) int {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	iconDir := flags.String("icons", "", "export decoded icons into this directory")
	pretty := flags.Bool("pretty", false, "indent the JSON output")
	flags.Parse(args)

	cfg := config.Load()
	logger := newLogger(cfg)

	info := system.Describe()
	logger.Debug("enumerating applications", "os", info.OS, "platform", info.Platform)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	apps, err := appscout.Enumerate(ctx, &appscout.Options{
		SearchPaths: cfg.SearchPaths,
		IconTheme:   cfg.IconTheme,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("enumeration failed", "error", err)
		return 1
	}

	if *iconDir != "" {
		exportIcons(apps, *iconDir)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(apps); err != nil {
		logger.Error("encoding output failed", "error", err)
		return 1
	}
	return 0
}

// exportIcons writes each application's decoded icon to <dir>/<slug>.png.
// Icon failures are per-app and never fail the listing.
func exportIcons(apps []appscout.App, dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("cannot create icon directory", "dir", dir, "error", err)
		return
	}
	for _, app := range apps {
		if app.Icon == nil {
			continue
		}
		data, err := appscout.LoadIcon(*app.Icon)
		if err != nil {
			slog.Debug("skipping icon", "app", app.Name, "error", err)
			continue
		}
		name := slugify(app.Name) + iconExportExt(app.Icon.Path)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			slog.Warn("cannot write icon", "app", app.Name, "error", err)
		}
	}
}

// iconExportExt mirrors LoadIcon's output format: vector and pixmap sources
// pass through verbatim, everything else comes back as PNG.
func iconExportExt(iconPath string) string {
	switch strings.ToLower(filepath.Ext(iconPath)) {
	case ".svg":
		return ".svg"
	case ".xpm":
		return ".xpm"
	}
	return ".png"
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return fmt.Sprintf("app-%d", time.Now().UnixNano())
	}
	return slug
}

// runPaths prints the platform's default scan directories, one per line.
func runPaths() int {
	for _, dir := range appscout.DefaultSearchPaths() {
		fmt.Println(dir)
	}
	return 0
}
