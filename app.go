// Package appscout discovers applications installed on the host machine and
// reports a normalized description of each, regardless of operating system.
//
// The cold path is Enumerate, which queries the platform's authoritative
// application registry (Windows registry and shortcut directories, the macOS
// Spotlight index, XDG desktop-entry directories on Linux) and folds the raw
// candidates into deduplicated App records. The live path is Watch, which
// subscribes to filesystem changes under the same directories and emits
// incremental Added/Updated/Removed events.
package appscout

// IconRef points at an icon resource without loading it. On Windows the
// referenced file may be an executable or DLL carrying multiple icon
// resources, selected by Index. Decoding happens lazily through LoadIcon.
type IconRef struct {
	Path  string `json:"path"`
	Index int    `json:"index,omitempty"`
}

// App is the canonical, platform-independent description of one installed
// application. Records are immutable value objects: the library never mutates
// an App after handing it out, and updates observed by the watch layer are
// delivered as fresh records.
//
// Identifier is the platform-native unique key: the bundle identifier on
// macOS, the lower-cased executable path on Windows, the desktop-entry file
// stem on Linux. It is unique within one enumeration result and defines
// record equality.
type App struct {
	// Name is the human-readable display name, localized where the source
	// provides one.
	Name string `json:"name"`

	// Path is the canonical filesystem location of the executable (Windows,
	// Linux) or bundle root (macOS). It referred to an existing filesystem
	// entity at the time of discovery.
	Path string `json:"path"`

	// Identifier is the deduplication key. See the type comment.
	Identifier string `json:"identifier"`

	// Icon references the application's icon resource, if one was found.
	Icon *IconRef `json:"icon,omitempty"`

	// LocalizedNames maps locale tags to display names where the platform
	// provides per-locale names (macOS lproj/loctable resources).
	LocalizedNames map[string]string `json:"localizedNames,omitempty"`

	// Metadata is an advisory key/value bag for fields that exist on only
	// one platform (desktop-entry categories, uninstall strings, bundle
	// versions). Keys are best-effort and not stable across platform
	// versions.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Equal reports whether two records describe the same application.
func (a App) Equal(b App) bool {
	return a.Identifier == b.Identifier
}

// EventKind classifies a WatchEvent.
type EventKind int

const (
	Added EventKind = iota
	Removed
	Updated
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so events serialize with the
// kind spelled out rather than as an integer.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// WatchEvent is emitted by a Watcher. For Removed events App carries the
// last known record for the identifier. Events within one debounce batch are
// delivered in discovery order; there is no ordering guarantee across
// batches beyond arrival time. Delivery is at-least-once per underlying
// filesystem notification, so consumers must treat repeated Updated events
// for one identifier as idempotent.
type WatchEvent struct {
	Kind EventKind `json:"kind"`
	App  App       `json:"app"`
}
