//go:build linux

package backend

import "log/slog"

func newPlatform(cfg Config, logger *slog.Logger) (Backend, error) {
	return newLinuxBackend(cfg, logger), nil
}
