package backend

import (
	"bufio"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// desktopEntry holds the fields of one XDG desktop-entry key file that
// discovery cares about.
type desktopEntry struct {
	Type       string
	Name       string
	Exec       string
	TryExec    string
	Icon       string
	Comment    string
	Categories string
	Terminal   string
	NoDisplay  bool
	Hidden     bool

	// LocalizedNames collects Name[locale] keys.
	LocalizedNames map[string]string
}

const desktopEntrySection = "Desktop Entry"

// parseDesktopEntry parses the content of a desktop-entry key file. Only the
// main [Desktop Entry] group is read; [Desktop Action *] groups are ignored.
// A file with no [Desktop Entry] group, or with content that is not a
// comment, group header or key=value line, is malformed.
func parseDesktopEntry(content string) (*desktopEntry, error) {
	entry := &desktopEntry{}
	seenMain := false
	inMain := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := line[1 : len(line)-1]
			inMain = name == desktopEntrySection
			if inMain {
				seenMain = true
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %q is not a group header or key", ErrMalformedSource, line)
		}
		if !inMain {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Type":
			entry.Type = value
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "TryExec":
			entry.TryExec = value
		case "Icon":
			entry.Icon = value
		case "Comment":
			entry.Comment = value
		case "Categories":
			entry.Categories = value
		case "Terminal":
			entry.Terminal = value
		case "NoDisplay":
			entry.NoDisplay = value == "true"
		case "Hidden":
			entry.Hidden = value == "true"
		default:
			if locale, found := localeSuffix(key, "Name"); found {
				if entry.LocalizedNames == nil {
					entry.LocalizedNames = make(map[string]string)
				}
				entry.LocalizedNames[locale] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	if !seenMain {
		return nil, fmt.Errorf("%w: no [Desktop Entry] group", ErrMalformedSource)
	}
	return entry, nil
}

// localeSuffix matches keys of the form base[locale].
func localeSuffix(key, base string) (string, bool) {
	if !strings.HasPrefix(key, base+"[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	return key[len(base)+1 : len(key)-1], true
}

// listed reports whether the entry should appear in an application listing.
// Entries that are hidden, not of type Application, or missing the required
// name/exec keys are excluded.
func (e *desktopEntry) listed() bool {
	if e.NoDisplay || e.Hidden {
		return false
	}
	if e.Type != "Application" {
		return false
	}
	return e.Name != "" && e.Exec != ""
}

// execCommand extracts the command word from an Exec value, dropping
// field codes (%U, %f, ...) and quoting.
func execCommand(execValue string) string {
	for _, w := range splitExecWords(execValue) {
		if strings.HasPrefix(w.text, "%") {
			continue
		}
		// env VAR=... prefixes are not the command itself
		if !w.quoted && (w.text == "env" || strings.Contains(w.text, "=")) {
			continue
		}
		return w.text
	}
	return ""
}

type execWord struct {
	text   string
	quoted bool
}

// splitExecWords splits an Exec value on whitespace. A double-quoted segment
// stays one word, so quoted commands containing spaces survive intact.
func splitExecWords(value string) []execWord {
	var words []execWord
	var cur strings.Builder
	inQuote := false
	quoted := false

	flush := func() {
		if cur.Len() > 0 || quoted {
			words = append(words, execWord{text: cur.String(), quoted: quoted})
		}
		cur.Reset()
		quoted = false
	}
	for _, r := range value {
		switch {
		case r == '"':
			inQuote = !inQuote
			quoted = true
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// resolveExecutable turns a command word into an absolute path, using PATH
// lookup for bare names. It returns "" when the target does not resolve to
// an existing file; such entries are dropped, not reported as broken apps.
func resolveExecutable(command string) string {
	if command == "" {
		return ""
	}
	if filepath.IsAbs(command) {
		if fileExists(command) {
			return command
		}
		return ""
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return resolved
	}
	return abs
}
