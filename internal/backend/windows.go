//go:build windows

package backend

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/windows/registry"
)

// registryHive names one uninstall or App Paths subtree to enumerate.
type registryHive struct {
	root registry.Key
	path string
	name string
}

var uninstallHives = []registryHive{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`, `HKLM`},
	{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`, `HKLM\WOW6432Node`},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`, `HKCU`},
}

var appPathsHives = []registryHive{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`, `HKLM`},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`, `HKCU`},
}

// windowsBackend discovers applications from the registry uninstall and App
// Paths subtrees and from Start Menu / Desktop shortcut directories.
type windowsBackend struct {
	searchPaths []string // shortcut directories
	logger      *slog.Logger
}

func newWindowsBackend(cfg Config, logger *slog.Logger) *windowsBackend {
	b := &windowsBackend{logger: logger}
	if len(cfg.SearchPaths) > 0 {
		b.searchPaths = cfg.SearchPaths
		return b
	}
	for _, dir := range []string{
		filepath.Join(os.Getenv("APPDATA"), "Microsoft", "Windows", "Start Menu", "Programs"),
		filepath.Join(os.Getenv("ProgramData"), "Microsoft", "Windows", "Start Menu", "Programs"),
		filepath.Join(os.Getenv("USERPROFILE"), "Desktop"),
		filepath.Join(os.Getenv("PUBLIC"), "Desktop"),
	} {
		if dir != "" {
			b.searchPaths = append(b.searchPaths, dir)
		}
	}
	return b
}

func (b *windowsBackend) SearchPaths() []string {
	return b.searchPaths
}

func (b *windowsBackend) Matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lnk")
}

func (b *windowsBackend) Enumerate(ctx context.Context) ([]Source, error) {
	var sources []Source

	// Registry entries first: they are the more authoritative origin and
	// the merge layer prefers their fields over shortcut-derived ones.
	registrySources, hiveFailures := b.registrySources(ctx)
	sources = append(sources, registrySources...)

	shortcutDirs := 0
	for _, dir := range b.searchPaths {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !dirExists(dir) {
			continue
		}
		shortcutDirs++
		sources = append(sources, b.scanShortcutDir(ctx, dir)...)
	}

	if hiveFailures == len(uninstallHives)+len(appPathsHives) && shortcutDirs == 0 {
		return nil, fmt.Errorf("%w: no registry hive or shortcut directory accessible", ErrPermissionDenied)
	}
	return sources, nil
}

// registrySources enumerates the uninstall and App Paths subtrees. A key
// that cannot be opened is a recoverable discovery gap.
func (b *windowsBackend) registrySources(ctx context.Context) ([]Source, int) {
	var sources []Source
	failures := 0

	for _, hive := range uninstallHives {
		if ctx.Err() != nil {
			break
		}
		found, err := b.scanUninstallHive(hive)
		if err != nil {
			failures++
			b.logger.Warn("skipping registry hive", "hive", hive.name, "path", hive.path, "error", err)
			continue
		}
		sources = append(sources, found...)
	}
	for _, hive := range appPathsHives {
		if ctx.Err() != nil {
			break
		}
		found, err := b.scanAppPathsHive(hive)
		if err != nil {
			failures++
			b.logger.Warn("skipping registry hive", "hive", hive.name, "path", hive.path, "error", err)
			continue
		}
		sources = append(sources, found...)
	}
	return sources, failures
}

func (b *windowsBackend) scanUninstallHive(hive registryHive) ([]Source, error) {
	key, err := registry.OpenKey(hive.root, hive.path, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	defer key.Close()

	subkeys, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var sources []Source
	for _, name := range subkeys {
		sub, err := registry.OpenKey(hive.root, hive.path+`\`+name, registry.READ)
		if err != nil {
			b.logger.Debug("skipping registry key", "key", name, "error", err)
			continue
		}
		src := b.uninstallEntrySource(sub, hive.name+`\`+name)
		sub.Close()
		if src != nil {
			sources = append(sources, *src)
		}
	}
	return sources, nil
}

// uninstallEntrySource reads one uninstall entry. Entries without a display
// name or whose paths no longer resolve are dropped.
func (b *windowsBackend) uninstallEntrySource(key registry.Key, origin string) *Source {
	displayName, _, err := key.GetStringValue("DisplayName")
	if err != nil || displayName == "" {
		return nil
	}

	displayIcon, _, _ := key.GetStringValue("DisplayIcon")
	installLocation, _, _ := key.GetStringValue("InstallLocation")

	iconPath, iconIndex := splitIconLocation(expandEnvAliases(displayIcon))

	// The executable behind the entry: DisplayIcon when it points at a
	// real .exe, else the install directory.
	var exe string
	if strings.EqualFold(filepath.Ext(iconPath), ".exe") && fileExists(iconPath) {
		exe = iconPath
	} else if installLocation != "" {
		loc := strings.Trim(expandEnvAliases(installLocation), `"`)
		if pathExists(loc) {
			exe = loc
		}
	}
	if exe == "" {
		return nil
	}
	exe = stripExtendedPrefix(exe)

	src := &Source{
		Origin:     origin,
		Kind:       KindRegistry,
		Identifier: strings.ToLower(exe),
		Name:       displayName,
		Path:       exe,
		IconPath:   iconPath,
		IconIndex:  iconIndex,
		Meta:       map[string]string{},
	}
	if uninstall, _, _ := key.GetStringValue("UninstallString"); uninstall != "" {
		src.Meta["uninstallString"] = uninstall
	}
	if publisher, _, _ := key.GetStringValue("Publisher"); publisher != "" {
		src.Meta["publisher"] = publisher
	}
	if version, _, _ := key.GetStringValue("DisplayVersion"); version != "" {
		src.Meta["version"] = version
	}
	if len(src.Meta) == 0 {
		src.Meta = nil
	}
	return src
}

func (b *windowsBackend) scanAppPathsHive(hive registryHive) ([]Source, error) {
	key, err := registry.OpenKey(hive.root, hive.path, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	defer key.Close()

	subkeys, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return nil, err
	}

	var sources []Source
	for _, name := range subkeys {
		sub, err := registry.OpenKey(hive.root, hive.path+`\`+name, registry.READ)
		if err != nil {
			continue
		}
		target, _, err := sub.GetStringValue("")
		sub.Close()
		if err != nil || target == "" {
			continue
		}
		exe := strings.Trim(expandEnvAliases(target), `"`)
		if !fileExists(exe) {
			continue
		}
		exe = stripExtendedPrefix(exe)
		sources = append(sources, Source{
			Origin:     hive.name + `\App Paths\` + name,
			Kind:       KindRegistry,
			Identifier: strings.ToLower(exe),
			Name:       strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe)),
			Path:       exe,
			IconPath:   exe,
		})
	}
	return sources, nil
}

// Poll snapshots the registry-derived sources. Registry keys emit no
// filesystem notifications, so the watch layer samples this instead.
func (b *windowsBackend) Poll(ctx context.Context) ([]Source, error) {
	sources, failures := b.registrySources(ctx)
	if failures == len(uninstallHives)+len(appPathsHives) {
		return nil, fmt.Errorf("%w: no registry hive accessible", ErrPermissionDenied)
	}
	return sources, nil
}

func (b *windowsBackend) PollInterval() time.Duration {
	return 30 * time.Second
}

func (b *windowsBackend) scanShortcutDir(ctx context.Context, dir string) []Source {
	var sources []Source
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
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
		src, err := b.shortcutSource(path)
		if err != nil {
			b.logger.Warn("skipping shortcut", "path", path, "error", err)
			return nil
		}
		if src != nil {
			sources = append(sources, *src)
		}
		return nil
	})
	return sources
}

// ResolveSingle re-derives a single shortcut changed by a watch event.
func (b *windowsBackend) ResolveSingle(path string) ([]Source, error) {
	if !b.Matches(path) {
		return nil, nil
	}
	if !fileExists(path) {
		return nil, nil
	}
	src, err := b.shortcutSource(path)
	if err != nil || src == nil {
		return nil, err
	}
	return []Source{*src}, nil
}

// shortcutSource resolves one .lnk file to a candidate. Shortcuts whose
// target no longer exists are dangling and dropped.
func (b *windowsBackend) shortcutSource(path string) (*Source, error) {
	target, err := parseShortcut(path)
	if err != nil {
		return nil, err
	}

	exe := target.Exe
	if !filepath.IsAbs(exe) {
		exe = filepath.Join(filepath.Dir(path), exe)
	}
	exe, err = filepath.Abs(exe)
	if err != nil || !fileExists(exe) {
		b.logger.Debug("dropping dangling shortcut", "path", path, "target", target.Exe)
		return nil, nil
	}
	exe = stripExtendedPrefix(exe)

	iconPath, iconIndex := splitIconLocation(target.IconLocation)
	if iconPath != "" && !filepath.IsAbs(iconPath) {
		iconPath = filepath.Join(filepath.Dir(path), iconPath)
	}
	if iconPath == "" || (!fileExists(iconPath) && !isIconContainer(iconPath)) {
		iconPath, iconIndex = exe, 0
	}

	src := &Source{
		Origin:     path,
		Kind:       KindShortcut,
		Identifier: strings.ToLower(exe),
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:       exe,
		IconPath:   iconPath,
		IconIndex:  iconIndex,
	}
	if target.WorkingDir != "" {
		src.Meta = map[string]string{"workingDir": target.WorkingDir}
	}
	return src, nil
}

// isIconContainer reports whether a missing icon path may still be a valid
// resource container (.dll/.exe references keep their index semantics).
func isIconContainer(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".dll" || ext == ".exe"
}
