package appscout

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func TestLoadIcon_PNGPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.png")
	want := writePNG(t, path)

	got, err := LoadIcon(IconRef{Path: path})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadIcon_SVGVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.svg")
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)
	require.NoError(t, os.WriteFile(path, svg, 0o644))

	got, err := LoadIcon(IconRef{Path: path})
	require.NoError(t, err)
	assert.Equal(t, svg, got)
}

func TestLoadIcon_Memoizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.png")
	want := writePNG(t, path)

	first, err := LoadIcon(IconRef{Path: path})
	require.NoError(t, err)

	// A second load must come from the cache, not the (now deleted) file.
	require.NoError(t, os.Remove(path))
	second, err := LoadIcon(IconRef{Path: path})
	require.NoError(t, err)

	assert.Equal(t, want, first)
	assert.Equal(t, first, second)
}

func TestLoadIcon_EmptyReference(t *testing.T) {
	_, err := LoadIcon(IconRef{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestLoadIcon_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.tiff")
	require.NoError(t, os.WriteFile(path, []byte("tiff"), 0o644))

	_, err := LoadIcon(IconRef{Path: path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestLoadIcon_CorruptRaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a jpeg"), 0o644))

	_, err := LoadIcon(IconRef{Path: path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSource)
}
