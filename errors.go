package appscout

import (
	"fmt"

	"codeberg.org/d-buckner/appscout/internal/backend"
)

// Sentinel errors for the discovery taxonomy. Per-entry failures
// (ErrPermissionDenied, ErrMalformedSource) are swallowed into
// skip-and-continue decisions inside the backends and only show up in logs;
// they are exported so collaborators resolving icons or single paths can
// classify failures with errors.Is.
var (
	// ErrPermissionDenied marks a registry key, directory or metadata query
	// that could not be accessed.
	ErrPermissionDenied = backend.ErrPermissionDenied

	// ErrMalformedSource marks a shortcut, property list or desktop-entry
	// file that could not be parsed.
	ErrMalformedSource = backend.ErrMalformedSource

	// ErrServiceUnavailable marks a platform metadata-store query (Spotlight)
	// that failed entirely. The macOS backend falls back to a filesystem walk
	// when it sees this; other callers get a degraded result, never a hard
	// failure.
	ErrServiceUnavailable = backend.ErrServiceUnavailable

	// ErrWatchSetup marks a failed filesystem-notification subscription.
	// Fatal for Watch; there is no automatic retry.
	ErrWatchSetup = backend.ErrWatchSetup
)

// DiscoveryError is returned by Enumerate on unrecoverable platform-API
// failure, never for per-entry skips.
type DiscoveryError struct {
	Platform string
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed on %s: %v", e.Platform, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
