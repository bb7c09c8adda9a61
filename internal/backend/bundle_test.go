package backend

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeBundle lays out a minimal .app structure and returns its root.
func writeBundle(t *testing.T, dir, name, infoPlist string) string {
	t.Helper()
	root := filepath.Join(dir, name+".app")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents", "Resources"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents", "MacOS"), 0o755))
	if infoPlist != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "Info.plist"), []byte(infoPlist), 0o644))
	}
	return root
}

func TestBundleSource(t *testing.T) {
	dir := t.TempDir()
	root := writeBundle(t, dir, "Safari", safariPlist)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "MacOS", "Safari"), []byte{}, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "Resources", "AppIcon.icns"), []byte("icns"), 0o644))

	src := bundleSource(root, discardLogger())
	require.NotNil(t, src)

	assert.Equal(t, KindBundle, src.Kind)
	assert.Equal(t, "com.apple.Safari", src.Identifier)
	assert.Equal(t, "Safari", src.Name)
	assert.Equal(t, root, src.Path)
	assert.Equal(t, filepath.Join(root, "Contents", "Resources", "AppIcon.icns"), src.IconPath)
	assert.Equal(t, filepath.Join(root, "Contents", "MacOS", "Safari"), src.Meta["executable"])
	assert.Equal(t, "17.1", src.Meta["version"])
}

func TestBundleSource_FallbackOnMissingPlist(t *testing.T) {
	dir := t.TempDir()
	root := writeBundle(t, dir, "Mystery Tool", "")

	src := bundleSource(root, discardLogger())
	require.NotNil(t, src)

	assert.Equal(t, KindBundleName, src.Kind)
	assert.Equal(t, root, src.Identifier)
	assert.Equal(t, "Mystery Tool", src.Name)
}

func TestBundleSource_FallbackOnGarbagePlist(t *testing.T) {
	dir := t.TempDir()
	root := writeBundle(t, dir, "Corrupt", "definitely not a plist")

	src := bundleSource(root, discardLogger())
	require.NotNil(t, src)
	assert.Equal(t, KindBundleName, src.Kind)
	assert.Equal(t, "Corrupt", src.Name)
}

func TestBundleSource_MissingRoot(t *testing.T) {
	assert.Nil(t, bundleSource(filepath.Join(t.TempDir(), "Gone.app"), discardLogger()))
}

func TestBundleSource_IdentifierFallsBackToPath(t *testing.T) {
	dir := t.TempDir()
	plist := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
	<key>CFBundleName</key><string>NoID</string>
</dict></plist>`
	root := writeBundle(t, dir, "NoID", plist)

	src := bundleSource(root, discardLogger())
	require.NotNil(t, src)
	assert.Equal(t, KindBundle, src.Kind)
	assert.Equal(t, root, src.Identifier)
}

func TestFindBundleIcon_FirstIcnsFallback(t *testing.T) {
	resources := filepath.Join(t.TempDir(), "Resources")
	require.NoError(t, os.MkdirAll(resources, 0o755))
	icon := filepath.Join(resources, "custom-artwork.icns")
	require.NoError(t, os.WriteFile(icon, []byte("icns"), 0o644))

	assert.Equal(t, icon, findBundleIcon(resources, "", ""))
}

func TestFindBundleIcon_AppendsExtension(t *testing.T) {
	resources := filepath.Join(t.TempDir(), "Resources")
	require.NoError(t, os.MkdirAll(resources, 0o755))
	icon := filepath.Join(resources, "Viewer.icns")
	require.NoError(t, os.WriteFile(icon, []byte("icns"), 0o644))

	assert.Equal(t, icon, findBundleIcon(resources, "Viewer", ""))
}

func TestReadLocalizedNames(t *testing.T) {
	resources := filepath.Join(t.TempDir(), "Resources")
	loctable := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
	<key>fr</key><dict>
		<key>CFBundleDisplayName</key><string>Navigateur</string>
	</dict>
</dict></plist>`
	require.NoError(t, os.MkdirAll(filepath.Join(resources, "zh-CN.lproj"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(resources, "InfoPlist.loctable"), []byte(loctable), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(resources, "zh-CN.lproj", "InfoPlist.strings"),
		[]byte(`"CFBundleDisplayName" = "浏览器";`), 0o644))

	names := readLocalizedNames(resources)
	assert.Equal(t, "Navigateur", names["fr"])
	assert.Equal(t, "浏览器", names["zh_CN"])
}

func TestReadLocalizedNames_Empty(t *testing.T) {
	assert.Nil(t, readLocalizedNames(filepath.Join(t.TempDir(), "Resources")))
}
