package backend

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// bundleSource derives one raw candidate from a macOS application bundle
// root. A bundle whose Info.plist is missing or unparsable is still included
// with the bundle filename as a best-effort name; only a bundle root that no
// longer exists yields nil.
func bundleSource(root string, logger *slog.Logger) *Source {
	if !dirExists(root) {
		return nil
	}

	stem := strings.TrimSuffix(filepath.Base(root), ".app")
	contents := filepath.Join(root, "Contents")
	resources := filepath.Join(contents, "Resources")

	plistPath := filepath.Join(contents, "Info.plist")
	data, err := os.ReadFile(plistPath)
	if err != nil {
		logger.Debug("bundle has no readable Info.plist, using filename", "bundle", root, "error", err)
		return fallbackBundleSource(root, stem, resources)
	}
	info, err := parseInfoPlist(data)
	if err != nil {
		logger.Warn("bundle has unparsable Info.plist, using filename", "bundle", root, "error", err)
		return fallbackBundleSource(root, stem, resources)
	}

	name := info.displayName()
	if name == "" {
		name = stem
	}
	identifier := info.CFBundleIdentifier
	if identifier == "" {
		identifier = root
	}

	src := &Source{
		Origin:         root,
		Kind:           KindBundle,
		Identifier:     identifier,
		Name:           name,
		Path:           root,
		IconPath:       findBundleIcon(resources, info.CFBundleIconFile, info.CFBundleIconName),
		LocalizedNames: readLocalizedNames(resources),
		Meta:           map[string]string{},
	}
	if info.CFBundleExecutable != "" {
		exe := filepath.Join(contents, "MacOS", info.CFBundleExecutable)
		if fileExists(exe) {
			src.Meta["executable"] = exe
		}
	}
	if info.CFBundleShortVersionString != "" {
		src.Meta["version"] = info.CFBundleShortVersionString
	}
	if info.CFBundleVersion != "" {
		src.Meta["bundleVersion"] = info.CFBundleVersion
	}
	if info.CFBundlePackageType != "" {
		src.Meta["packageType"] = info.CFBundlePackageType
	}
	if len(src.Meta) == 0 {
		src.Meta = nil
	}
	return src
}

func fallbackBundleSource(root, stem, resources string) *Source {
	return &Source{
		Origin:     root,
		Kind:       KindBundleName,
		Identifier: root,
		Name:       stem,
		Path:       root,
		IconPath:   findBundleIcon(resources, "", ""),
	}
}

// findBundleIcon resolves the bundle's icon file. The strategy chain:
// CFBundleIconFile, CFBundleIconName, well-known icon file names, then the
// first .icns file in Resources.
func findBundleIcon(resources, iconFile, iconName string) string {
	if iconFile != "" {
		if !strings.HasSuffix(iconFile, ".icns") {
			iconFile += ".icns"
		}
		if path := filepath.Join(resources, iconFile); fileExists(path) {
			return path
		}
	}
	if iconName != "" {
		if path := filepath.Join(resources, iconName+".icns"); fileExists(path) {
			return path
		}
	}
	for _, name := range []string{"AppIcon.icns", "app.icns", "icon.icns", "application.icns"} {
		if path := filepath.Join(resources, name); fileExists(path) {
			return path
		}
	}
	entries, err := os.ReadDir(resources)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".icns") {
			return filepath.Join(resources, entry.Name())
		}
	}
	return ""
}

// readLocalizedNames collects per-locale display names from the bundle's
// InfoPlist.loctable and the per-locale *.lproj/InfoPlist.strings tables.
func readLocalizedNames(resources string) map[string]string {
	names := make(map[string]string)

	loctablePath := filepath.Join(resources, "InfoPlist.loctable")
	if data, err := os.ReadFile(loctablePath); err == nil {
		var loctable map[string]map[string]any
		if _, err := plist.Unmarshal(data, &loctable); err == nil {
			for locale, kvs := range loctable {
				if name, ok := kvs["CFBundleDisplayName"].(string); ok {
					names[locale] = name
				} else if name, ok := kvs["CFBundleName"].(string); ok {
					names[locale] = name
				}
			}
		}
	}

	entries, err := os.ReadDir(resources)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lproj") {
				continue
			}
			stringsPath := filepath.Join(resources, entry.Name(), "InfoPlist.strings")
			data, err := os.ReadFile(stringsPath)
			if err != nil {
				continue
			}
			name := localizedNameFromStrings(parseStringsFile(data))
			if name == "" {
				continue
			}
			// Some bundles use "zh-CN.lproj" rather than "zh_CN.lproj".
			locale := strings.ReplaceAll(strings.TrimSuffix(entry.Name(), ".lproj"), "-", "_")
			if _, exists := names[locale]; !exists {
				names[locale] = name
			}
		}
	}

	if len(names) == 0 {
		return nil
	}
	return names
}
