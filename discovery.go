package appscout

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"codeberg.org/d-buckner/appscout/internal/backend"
)

// Options tunes discovery. The zero value selects platform defaults.
type Options struct {
	// SearchPaths overrides the platform's default scan directories. Paths
	// that do not exist are skipped; discovery fails only when none exist.
	SearchPaths []string

	// IconTheme names the icon theme used for Linux icon-name resolution.
	// Defaults to hicolor.
	IconTheme string

	// Debounce is the window a Watcher collects filesystem changes over
	// before publishing them as one batch. Defaults to 500ms.
	Debounce time.Duration

	// Logger receives structured discovery logs. Defaults to slog.Default.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) backendConfig() backend.Config {
	if o == nil {
		return backend.Config{}
	}
	return backend.Config{
		SearchPaths: o.SearchPaths,
		IconTheme:   o.IconTheme,
	}
}

// Enumerate performs a full scan of the platform's application registry and
// returns the deduplicated application records. Unreadable or malformed
// entries are skipped and logged; a non-nil error means the platform registry
// was wholly inaccessible and is always a *DiscoveryError.
func Enumerate(ctx context.Context, opts *Options) ([]App, error) {
	logger := opts.logger().With("scan", uuid.NewString())

	b, err := backend.New(opts.backendConfig(), logger)
	if err != nil {
		return nil, &DiscoveryError{Platform: runtime.GOOS, Err: err}
	}

	start := time.Now()
	sources, err := b.Enumerate(ctx)
	if err != nil {
		return nil, &DiscoveryError{Platform: runtime.GOOS, Err: err}
	}

	apps := mergeSources(sources)
	logger.Info("enumeration complete",
		"candidates", len(sources),
		"apps", len(apps),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return apps, nil
}

// DefaultSearchPaths reports the directories the platform backend scans when
// no override is configured.
func DefaultSearchPaths() []string {
	b, err := backend.New(backend.Config{}, slog.Default())
	if err != nil {
		return nil
	}
	return b.SearchPaths()
}
