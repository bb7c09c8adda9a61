//go:build windows

package backend

import "log/slog"

func newPlatform(cfg Config, logger *slog.Logger) (Backend, error) {
	return newWindowsBackend(cfg, logger), nil
}
