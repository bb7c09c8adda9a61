package appscout

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/fyne-io/image/ico"
	"github.com/jackmordaunt/icns/v2"

	"codeberg.org/d-buckner/appscout/internal/backend"
)

// iconCache memoizes decoded icons by "path|index". Icon files are immutable
// in practice; a changed icon arrives under a new path or a fresh App record.
var (
	iconCache   = make(map[string][]byte)
	iconCacheMu sync.RWMutex
)

func cacheGet(key string) ([]byte, bool) {
	iconCacheMu.RLock()
	defer iconCacheMu.RUnlock()
	data, ok := iconCache[key]
	return data, ok
}

func cacheSet(key string, data []byte) {
	iconCacheMu.Lock()
	defer iconCacheMu.Unlock()
	iconCache[key] = data
}

// LoadIcon decodes the icon behind a reference to PNG bytes. Vector and
// pixmap formats without a stdlib decoder (.svg, .xpm) are returned verbatim;
// everything else, including Windows executable resources and macOS .icns
// containers, is rendered to PNG. Results are memoized per reference.
func LoadIcon(ref IconRef) ([]byte, error) {
	if ref.Path == "" {
		return nil, fmt.Errorf("%w: empty icon reference", ErrMalformedSource)
	}

	key := fmt.Sprintf("%s|%d", ref.Path, ref.Index)
	if data, ok := cacheGet(key); ok {
		return data, nil
	}

	data, err := decodeIcon(ref)
	if err != nil {
		return nil, err
	}
	cacheSet(key, data)
	return data, nil
}

func decodeIcon(ref IconRef) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(ref.Path)) {
	case ".png":
		return os.ReadFile(ref.Path)
	case ".jpg", ".jpeg", ".gif":
		return reencodeImageFile(ref.Path, func(f *os.File) (image.Image, error) {
			img, _, err := image.Decode(f)
			return img, err
		})
	case ".ico":
		return reencodeImageFile(ref.Path, func(f *os.File) (image.Image, error) {
			return ico.Decode(f)
		})
	case ".icns":
		return reencodeImageFile(ref.Path, func(f *os.File) (image.Image, error) {
			return icns.Decode(f)
		})
	case ".svg", ".xpm":
		return os.ReadFile(ref.Path)
	case ".exe", ".dll":
		return backend.ExtractExecutableIcon(ref.Path, ref.Index)
	default:
		return nil, fmt.Errorf("%w: unsupported icon format %s", ErrMalformedSource, ref.Path)
	}
}

func reencodeImageFile(path string, decode func(*os.File) (image.Image, error)) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrMalformedSource, path, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
