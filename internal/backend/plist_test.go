package backend

import (
	"errors"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const safariPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>com.apple.Safari</string>
	<key>CFBundleName</key>
	<string>Safari</string>
	<key>CFBundleExecutable</key>
	<string>Safari</string>
	<key>CFBundleIconFile</key>
	<string>AppIcon.icns</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleShortVersionString</key>
	<string>17.1</string>
</dict>
</plist>`

func TestParseInfoPlist(t *testing.T) {
	info, err := parseInfoPlist([]byte(safariPlist))
	require.NoError(t, err)

	assert.Equal(t, "com.apple.Safari", info.CFBundleIdentifier)
	assert.Equal(t, "Safari", info.CFBundleName)
	assert.Equal(t, "Safari", info.CFBundleExecutable)
	assert.Equal(t, "AppIcon.icns", info.CFBundleIconFile)
	assert.Equal(t, "APPL", info.CFBundlePackageType)
	assert.Equal(t, "17.1", info.CFBundleShortVersionString)
}

func TestParseInfoPlist_Malformed(t *testing.T) {
	_, err := parseInfoPlist([]byte("not a property list"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSource))
}

func TestDisplayName_PrefersDisplayName(t *testing.T) {
	info := &infoPlist{CFBundleName: "Safari", CFBundleDisplayName: "Safari Browser"}
	assert.Equal(t, "Safari Browser", info.displayName())

	info = &infoPlist{CFBundleName: "Safari"}
	assert.Equal(t, "Safari", info.displayName())

	assert.Equal(t, "", (&infoPlist{}).displayName())
}

func TestParseStringsFile_Text(t *testing.T) {
	content := `/* Localized names */
"CFBundleDisplayName" = "Navigateur";
// trailing comment
"CFBundleName" = "Nav";
`
	kvs := parseStringsFile([]byte(content))
	assert.Equal(t, "Navigateur", kvs["CFBundleDisplayName"])
	assert.Equal(t, "Nav", kvs["CFBundleName"])
	assert.Equal(t, "Navigateur", localizedNameFromStrings(kvs))
}

func TestParseStringsFile_UTF16(t *testing.T) {
	text := `"CFBundleDisplayName" = "编辑器";`
	encoded := []byte{0xFF, 0xFE}
	for _, u := range utf16.Encode([]rune(text)) {
		encoded = append(encoded, byte(u), byte(u>>8))
	}

	kvs := parseStringsFile(encoded)
	assert.Equal(t, "编辑器", kvs["CFBundleDisplayName"])
}

func TestParseStringsFile_XMLPlist(t *testing.T) {
	content := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>CFBundleName</key>
	<string>Editor</string>
</dict>
</plist>`
	kvs := parseStringsFile([]byte(content))
	assert.Equal(t, "Editor", kvs["CFBundleName"])
	assert.Equal(t, "Editor", localizedNameFromStrings(kvs))
}
