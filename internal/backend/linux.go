package backend

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// linuxBackend discovers applications from XDG desktop-entry directories,
// including the snapd desktop directory and the Flatpak per-app layout.
type linuxBackend struct {
	searchPaths  []string // plain desktop-entry directories, scan order
	flatpakRoots []string
	icons        *iconResolver
	home         string
	logger       *slog.Logger
}

func newLinuxBackend(cfg Config, logger *slog.Logger) *linuxBackend {
	home, _ := os.UserHomeDir()

	b := &linuxBackend{
		home:   home,
		logger: logger,
	}

	if len(cfg.SearchPaths) > 0 {
		b.searchPaths = cfg.SearchPaths
	} else {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		b.searchPaths = []string{
			"/usr/share/applications",
			"/usr/local/share/applications",
			filepath.Join(dataHome, "applications"),
			"/var/lib/snapd/desktop/applications",
		}
		b.flatpakRoots = []string{
			"/var/lib/flatpak/app",
			filepath.Join(dataHome, "flatpak", "app"),
		}
	}

	b.icons = newIconResolver(cfg.IconTheme, iconDataDirs(home))
	return b
}

// iconDataDirs returns the XDG data directories searched for icon themes.
func iconDataDirs(home string) []string {
	var dirs []string
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		dirs = append(dirs, v)
	} else if home != "" {
		dirs = append(dirs, filepath.Join(home, ".local", "share"))
	}
	if v := os.Getenv("XDG_DATA_DIRS"); v != "" {
		dirs = append(dirs, filepath.SplitList(v)...)
	} else {
		dirs = append(dirs, "/usr/share", "/usr/local/share")
	}
	return dirs
}

func (b *linuxBackend) SearchPaths() []string {
	paths := make([]string, 0, len(b.searchPaths)+len(b.flatpakRoots))
	paths = append(paths, b.searchPaths...)
	paths = append(paths, b.flatpakRoots...)
	return paths
}

func (b *linuxBackend) Matches(path string) bool {
	return strings.HasSuffix(path, ".desktop")
}

func (b *linuxBackend) Enumerate(ctx context.Context) ([]Source, error) {
	accessible := 0
	for _, dir := range b.SearchPaths() {
		if dirExists(dir) {
			accessible++
		}
	}
	if accessible == 0 {
		return nil, fmt.Errorf("no accessible desktop-entry directories under %v", b.SearchPaths())
	}

	// Scan directories concurrently but assemble results in directory
	// order, so repeated enumerations yield identical ordering.
	plain := b.searchPaths
	results := make([][]Source, len(plain)+len(b.flatpakRoots))

	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range plain {
		i, dir := i, dir
		g.Go(func() error {
			sources, err := b.scanDir(ctx, dir)
			if err != nil {
				return err
			}
			results[i] = sources
			return nil
		})
	}
	for i, root := range b.flatpakRoots {
		i, root := i, root
		g.Go(func() error {
			sources, err := b.scanFlatpakRoot(ctx, root)
			if err != nil {
				return err
			}
			results[len(plain)+i] = sources
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Source
	for _, sources := range results {
		all = append(all, sources...)
	}
	return all, nil
}

// scanDir walks one desktop-entry directory. Unreadable or malformed entries
// are recoverable discovery gaps: they are logged and skipped.
func (b *linuxBackend) scanDir(ctx context.Context, dir string) ([]Source, error) {
	if !dirExists(dir) {
		return nil, nil
	}

	var sources []Source
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			b.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !b.Matches(path) {
			return nil
		}
		src, err := b.sourceFromFile(path)
		if err != nil {
			b.logger.Warn("skipping desktop entry", "path", path, "error", err)
			return nil
		}
		if src != nil {
			sources = append(sources, *src)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// scanFlatpakRoot reads the Flatpak per-app layout, where each installed app
// keeps its desktop file at
// <root>/<id>/current/active/files/share/applications/<id>.desktop.
func (b *linuxBackend) scanFlatpakRoot(ctx context.Context, root string) ([]Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil // no flatpak installation
	}

	var sources []Source
	for _, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		desktopPath := filepath.Join(root, id, "current", "active", "files", "share", "applications", id+".desktop")
		if !fileExists(desktopPath) {
			continue
		}
		src, err := b.sourceFromFile(desktopPath)
		if err != nil {
			b.logger.Warn("skipping flatpak desktop entry", "path", desktopPath, "error", err)
			continue
		}
		if src != nil {
			sources = append(sources, *src)
		}
	}
	return sources, nil
}

// ResolveSingle re-parses one desktop-entry file changed by a watch event.
func (b *linuxBackend) ResolveSingle(path string) ([]Source, error) {
	if !b.Matches(path) {
		return nil, nil
	}
	src, err := b.sourceFromFile(path)
	if err != nil || src == nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return []Source{*src}, nil
}

// sourceFromFile derives one raw candidate from a desktop-entry file. A nil
// source with a nil error means the entry is valid but excluded (hidden,
// non-application, or its executable no longer resolves).
func (b *linuxBackend) sourceFromFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, err
	}

	entry, err := parseDesktopEntry(string(data))
	if err != nil {
		return nil, err
	}
	if !entry.listed() {
		return nil, nil
	}

	exe := resolveExecutable(execCommand(entry.Exec))
	if exe == "" {
		b.logger.Debug("dropping entry with unresolvable command", "path", path, "exec", entry.Exec)
		return nil, nil
	}

	kind := KindDesktopSystem
	if b.home != "" && strings.HasPrefix(path, b.home+string(filepath.Separator)) {
		kind = KindDesktopUser
	}

	src := &Source{
		Origin:         path,
		Kind:           kind,
		Identifier:     strings.TrimSuffix(filepath.Base(path), ".desktop"),
		Name:           entry.Name,
		Path:           exe,
		IconPath:       b.icons.Resolve(entry.Icon),
		LocalizedNames: entry.LocalizedNames,
		Meta:           map[string]string{"exec": entry.Exec},
	}
	if entry.Categories != "" {
		src.Meta["categories"] = entry.Categories
	}
	if entry.Comment != "" {
		src.Meta["comment"] = entry.Comment
	}
	if entry.Terminal != "" {
		src.Meta["terminal"] = entry.Terminal
	}
	return src, nil
}
