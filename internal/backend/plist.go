package backend

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"howett.net/plist"
)

// infoPlist carries the Info.plist keys discovery reads. howett.net/plist
// autodetects XML and binary property lists.
type infoPlist struct {
	CFBundleIdentifier         string `plist:"CFBundleIdentifier"`
	CFBundleName               string `plist:"CFBundleName"`
	CFBundleDisplayName        string `plist:"CFBundleDisplayName"`
	CFBundleExecutable         string `plist:"CFBundleExecutable"`
	CFBundleIconFile           string `plist:"CFBundleIconFile"`
	CFBundleIconName           string `plist:"CFBundleIconName"`
	CFBundlePackageType        string `plist:"CFBundlePackageType"`
	CFBundleShortVersionString string `plist:"CFBundleShortVersionString"`
	CFBundleVersion            string `plist:"CFBundleVersion"`
}

func parseInfoPlist(data []byte) (*infoPlist, error) {
	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	return &info, nil
}

// displayName picks the best human-readable name from the plist, or "" when
// the plist carries none.
func (p *infoPlist) displayName() string {
	if p.CFBundleDisplayName != "" {
		return p.CFBundleDisplayName
	}
	return p.CFBundleName
}

// parseStringsFile parses an InfoPlist.strings file, which may be a binary
// or XML property list, or plain "key" = "value"; pairs in UTF-8 or UTF-16.
func parseStringsFile(data []byte) map[string]string {
	result := make(map[string]string)

	var dict map[string]any
	if _, err := plist.Unmarshal(data, &dict); err == nil {
		for key, value := range dict {
			if s, ok := value.(string); ok {
				result[key] = s
			}
		}
		return result
	}

	content := decodeStringsText(data)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "//") || strings.HasSuffix(line, "*/") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `"`)
		value = strings.TrimSpace(value)
		value = strings.TrimSuffix(value, ";")
		value = strings.Trim(value, `"`)
		if key != "" && value != "" {
			result[key] = value
		}
	}
	return result
}

// decodeStringsText handles the UTF-16LE byte-order mark that Apple's
// tooling writes for text-form .strings files.
func decodeStringsText(data []byte) string {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		u16 := make([]uint16, 0, (len(data)-2)/2)
		for i := 2; i+1 < len(data); i += 2 {
			u16 = append(u16, uint16(data[i])|uint16(data[i+1])<<8)
		}
		return string(utf16.Decode(u16))
	}
	return string(data)
}

// localizedNameFromStrings extracts the display name from one parsed
// .strings table, preferring CFBundleDisplayName over CFBundleName.
func localizedNameFromStrings(kvs map[string]string) string {
	if name, ok := kvs["CFBundleDisplayName"]; ok {
		return name
	}
	return kvs["CFBundleName"]
}
