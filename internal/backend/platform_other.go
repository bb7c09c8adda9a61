//go:build !linux && !darwin && !windows

package backend

import (
	"fmt"
	"log/slog"
	"runtime"
)

func newPlatform(cfg Config, logger *slog.Logger) (Backend, error) {
	return nil, fmt.Errorf("%w: no discovery backend for %s", ErrServiceUnavailable, runtime.GOOS)
}
