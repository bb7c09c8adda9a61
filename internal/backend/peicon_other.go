//go:build !windows

package backend

import "fmt"

// ExtractExecutableIcon requires Win32 resource APIs. On other platforms the
// icon pipeline decodes image files directly and never reaches this path.
func ExtractExecutableIcon(path string, index int) ([]byte, error) {
	return nil, fmt.Errorf("icon extraction from %s: %w", path, ErrServiceUnavailable)
}
