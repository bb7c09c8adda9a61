package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDarwinBackend(dir string, run mdfindRunner) *darwinBackend {
	return &darwinBackend{
		searchPaths: []string{dir},
		runMDFind:   run,
		logger:      discardLogger(),
	}
}

func TestDarwinEnumerate_MetadataQuery(t *testing.T) {
	dir := t.TempDir()
	safari := writeBundle(t, dir, "Safari", safariPlist)

	b := newTestDarwinBackend(dir, func(ctx context.Context, queryDir string) ([]string, error) {
		assert.Equal(t, dir, queryDir)
		return []string{safari, safari, ""}, nil
	})

	sources, err := b.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "com.apple.Safari", sources[0].Identifier)
	assert.Equal(t, KindBundle, sources[0].Kind)
}

func TestDarwinEnumerate_FallbackWalk(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "Safari", safariPlist)
	writeBundle(t, dir, "Notes", `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
	<key>CFBundleIdentifier</key><string>com.apple.Notes</string>
	<key>CFBundleName</key><string>Notes</string>
</dict></plist>`)
	writeBundle(t, dir, "NoPlist", "")

	b := newTestDarwinBackend(dir, func(ctx context.Context, queryDir string) ([]string, error) {
		return nil, fmt.Errorf("%w: metadata store down", ErrServiceUnavailable)
	})

	sources, err := b.Enumerate(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	kinds := map[Kind]int{}
	for _, src := range sources {
		kinds[src.Kind]++
	}
	assert.Equal(t, 2, kinds[KindBundle])
	assert.Equal(t, 1, kinds[KindBundleName])
}

func TestDarwinEnumerate_HardFailurePropagates(t *testing.T) {
	b := newTestDarwinBackend(t.TempDir(), func(ctx context.Context, queryDir string) ([]string, error) {
		return nil, fmt.Errorf("%w: query denied", ErrPermissionDenied)
	})

	_, err := b.Enumerate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDarwinResolveSingle_EnclosingBundle(t *testing.T) {
	dir := t.TempDir()
	root := writeBundle(t, dir, "Safari", safariPlist)

	b := newTestDarwinBackend(dir, nil)

	sources, err := b.ResolveSingle(filepath.Join(root, "Contents", "Info.plist"))
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, root, sources[0].Path)

	sources, err = b.ResolveSingle(filepath.Join(dir, "README.txt"))
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestEnclosingBundle(t *testing.T) {
	assert.Equal(t, "/Applications/Safari.app", enclosingBundle("/Applications/Safari.app/Contents/Info.plist"))
	assert.Equal(t, "/Applications/Safari.app", enclosingBundle("/Applications/Safari.app"))
	assert.Equal(t, "", enclosingBundle("/Applications/notes.txt"))
}

func TestRelDepth(t *testing.T) {
	assert.Equal(t, 0, relDepth("/a", "/a"))
	assert.Equal(t, 1, relDepth("/a", "/a/b"))
	assert.Equal(t, 2, relDepth("/a", "/a/b/c"))
}
