package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	lnk "github.com/parsiya/golnk"
)

// shortcutTarget is the raw, unverified outcome of parsing a .lnk file.
// Filesystem existence checks happen in the backend, not here, so the parse
// logic stays testable off-Windows.
type shortcutTarget struct {
	// Exe is the link target, possibly relative to the shortcut's directory
	// and possibly containing %VAR% aliases.
	Exe string
	// IconLocation is the raw "path,index" icon reference, when present.
	IconLocation string
	WorkingDir   string
}

// parseShortcut reads a Windows shell link. Target resolution order follows
// the link format: LinkInfo local base path (plus common suffix), then the
// relative path string, then an icon location that is itself an executable.
func parseShortcut(path string) (target *shortcutTarget, err error) {
	// The link parser indexes into untrusted binary data and can panic on
	// truncated files; treat that the same as a parse error.
	defer func() {
		if r := recover(); r != nil {
			target, err = nil, fmt.Errorf("%w: parsing %s: %v", ErrMalformedSource, path, r)
		}
	}()

	link, err := lnk.File(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	target = &shortcutTarget{
		IconLocation: link.StringData.IconLocation,
		WorkingDir:   link.StringData.WorkingDir,
	}

	switch {
	case link.LinkInfo.LocalBasePath != "":
		target.Exe = link.LinkInfo.LocalBasePath
		if link.LinkInfo.CommonPathSuffix != "" {
			target.Exe = filepath.Join(target.Exe, link.LinkInfo.CommonPathSuffix)
		}
	case link.StringData.RelativePath != "":
		target.Exe = link.StringData.RelativePath
	default:
		iconPath, _ := splitIconLocation(target.IconLocation)
		if strings.EqualFold(filepath.Ext(iconPath), ".exe") {
			target.Exe = iconPath
		}
	}

	if target.Exe == "" {
		return nil, fmt.Errorf("%w: shortcut has no resolvable target", ErrMalformedSource)
	}
	target.Exe = expandEnvAliases(target.Exe)
	target.IconLocation = expandEnvAliases(target.IconLocation)
	target.WorkingDir = expandEnvAliases(target.WorkingDir)
	return target, nil
}

var envAliasPattern = regexp.MustCompile(`%([^%]+)%`)

// expandEnvAliases translates Windows-style %VAR% references ("%windir%",
// "%ProgramFiles%") against the environment, case-insensitively. Unset
// variables are left in place.
func expandEnvAliases(path string) string {
	return envAliasPattern.ReplaceAllStringFunc(path, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := lookupEnvFold(name); ok {
			return value
		}
		return match
	})
}

func lookupEnvFold(name string) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// splitIconLocation splits a "path,index" icon reference. The path part may
// be quoted and may itself contain commas.
func splitIconLocation(loc string) (string, int) {
	if loc == "" {
		return "", 0
	}

	if strings.HasPrefix(loc, `"`) {
		if end := strings.Index(loc[1:], `"`); end != -1 {
			path := loc[1 : end+1]
			rest := strings.TrimSpace(loc[end+2:])
			if idxStr, ok := strings.CutPrefix(rest, ","); ok {
				idx, _ := strconv.Atoi(strings.TrimSpace(idxStr))
				return path, idx
			}
			return path, 0
		}
	}

	lastComma := strings.LastIndex(loc, ",")
	if lastComma == -1 {
		return strings.Trim(loc, `"`), 0
	}
	path := strings.Trim(strings.TrimSpace(loc[:lastComma]), `"`)
	idx, err := strconv.Atoi(strings.TrimSpace(loc[lastComma+1:]))
	if err != nil {
		return strings.Trim(loc, `"`), 0
	}
	return path, idx
}

// stripExtendedPrefix removes the \\?\ long-path prefix Windows APIs may
// prepend during canonicalization.
func stripExtendedPrefix(path string) string {
	return strings.TrimPrefix(path, `\\?\`)
}
