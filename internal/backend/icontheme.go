package backend

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var iconExtensions = []string{".png", ".svg", ".xpm"}

// iconResolver resolves bare icon names from desktop entries against the
// icon theme search path. The fallback chain is the configured theme, then
// hicolor, then the shared pixmaps directories; within a theme, larger sizes
// win and "scalable" outranks any raster size.
type iconResolver struct {
	theme    string
	dataDirs []string
}

// newIconResolver builds a resolver over the given XDG data directories.
func newIconResolver(theme string, dataDirs []string) *iconResolver {
	if theme == "" {
		theme = "hicolor"
	}
	return &iconResolver{theme: theme, dataDirs: dataDirs}
}

// Resolve maps an icon name to a file path, or "" when nothing matches.
// Absolute names are accepted as-is when the file exists.
func (r *iconResolver) Resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name
		}
		return ""
	}
	// Some entries carry an extension already; strip it for theme lookup.
	name = strings.TrimSuffix(name, filepath.Ext(name))

	themes := []string{r.theme}
	if r.theme != "hicolor" {
		themes = append(themes, "hicolor")
	}
	for _, theme := range themes {
		for _, dataDir := range r.dataDirs {
			if path := lookupInTheme(filepath.Join(dataDir, "icons", theme), name); path != "" {
				return path
			}
		}
	}
	for _, dataDir := range r.dataDirs {
		for _, ext := range iconExtensions {
			path := filepath.Join(dataDir, "pixmaps", name+ext)
			if fileExists(path) {
				return path
			}
		}
	}
	return ""
}

// lookupInTheme searches one theme directory for the named icon, visiting
// size directories from largest to smallest.
func lookupInTheme(themeDir, name string) string {
	entries, err := os.ReadDir(themeDir)
	if err != nil {
		return ""
	}

	type sized struct {
		dir  string
		rank int
	}
	var sizeDirs []sized
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rank, ok := sizeRank(entry.Name())
		if !ok {
			continue
		}
		sizeDirs = append(sizeDirs, sized{dir: entry.Name(), rank: rank})
	}
	sort.Slice(sizeDirs, func(i, j int) bool {
		if sizeDirs[i].rank != sizeDirs[j].rank {
			return sizeDirs[i].rank > sizeDirs[j].rank
		}
		return sizeDirs[i].dir < sizeDirs[j].dir
	})

	for _, sd := range sizeDirs {
		for _, ext := range iconExtensions {
			path := filepath.Join(themeDir, sd.dir, "apps", name+ext)
			if fileExists(path) {
				return path
			}
		}
	}
	return ""
}

// sizeRank orders theme size directories: scalable above everything, then
// NxN directories by pixel size.
func sizeRank(dir string) (int, bool) {
	if dir == "scalable" {
		return 1 << 20, true
	}
	size, _, found := strings.Cut(dir, "x")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(size)
	if err != nil {
		return 0, false
	}
	return n, true
}
