// Package backend implements per-platform application discovery behind one
// shared contract. The active platform's backend is selected at build time;
// shared parsing logic (desktop-entry key files, .lnk structures, Info.plist,
// icon-theme lookup) lives in untagged files so it is exercised on every
// platform's test run.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Error taxonomy shared by all backends. The root package re-exports these.
var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrMalformedSource    = errors.New("malformed source")
	ErrServiceUnavailable = errors.New("platform service unavailable")
	ErrWatchSetup         = errors.New("watch setup failed")
)

// Kind identifies where a raw candidate came from. The merge layer uses it
// to rank conflicting field values.
type Kind int

const (
	KindRegistry Kind = iota
	KindShortcut
	KindBundle
	KindBundleName // bundle included via filesystem-name fallback, no plist
	KindDesktopSystem
	KindDesktopUser
)

func (k Kind) String() string {
	switch k {
	case KindRegistry:
		return "registry"
	case KindShortcut:
		return "shortcut"
	case KindBundle:
		return "bundle"
	case KindBundleName:
		return "bundle-name"
	case KindDesktopSystem:
		return "desktop-system"
	case KindDesktopUser:
		return "desktop-user"
	}
	return "unknown"
}

// Authority ranks kinds for merge tie-breaks: a registry entry beats the
// shortcuts pointing at the same executable, bundle metadata beats a
// filesystem-name fallback, and a user-scope desktop entry overrides the
// system-scope one (XDG shadowing; override stubs never survive parsing, so
// any user entry that reaches the merge is a full entry).
func (k Kind) Authority() int {
	switch k {
	case KindRegistry, KindBundle, KindDesktopUser:
		return 3
	case KindShortcut, KindDesktopSystem:
		return 2
	case KindBundleName:
		return 1
	}
	return 0
}

// Source is a raw, pre-merge discovery candidate. Sources are created during
// a scan or a single-event resolution, consumed by the merge layer and then
// discarded; they are never retained.
type Source struct {
	// Origin is the path of the artifact the candidate was derived from: a
	// .lnk file, a .desktop file, a bundle root, or a registry key path.
	Origin string
	Kind   Kind

	Identifier string
	Name       string
	Path       string

	IconPath  string
	IconIndex int

	LocalizedNames map[string]string
	Meta           map[string]string
}

// Backend is the per-platform discovery contract.
type Backend interface {
	// Enumerate performs a full scan and returns all raw candidates. It
	// skips unreadable or malformed entries and fails only when the
	// platform's application registry is wholly inaccessible.
	Enumerate(ctx context.Context) ([]Source, error)

	// ResolveSingle re-derives the candidates for one filesystem path
	// changed by a watch event, without rescanning. An empty result with a
	// nil error means the path no longer yields a valid application.
	ResolveSingle(path string) ([]Source, error)

	// SearchPaths returns the directories this backend scans, which are
	// also the directories the watch layer subscribes to.
	SearchPaths() []string

	// Matches reports whether a filesystem path is a discovery artifact this
	// backend cares about (.desktop file, .lnk file, .app bundle root).
	Matches(path string) bool
}

// Poller is implemented by backends with sources that are not filesystem
// artifacts and so cannot be covered by directory notifications (the Windows
// registry). The watch layer samples the snapshot and rescans on change.
type Poller interface {
	// Poll returns the current snapshot of the non-filesystem sources.
	Poll(ctx context.Context) ([]Source, error)

	// PollInterval is the sampling cadence.
	PollInterval() time.Duration
}

// Config carries the tunables a backend needs. Zero values select platform
// defaults.
type Config struct {
	// SearchPaths overrides the platform's default scan directories.
	SearchPaths []string

	// IconTheme names the icon theme used for Linux icon-name resolution.
	IconTheme string
}

// New returns the backend for the build platform.
func New(cfg Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return newPlatform(cfg, logger)
}
