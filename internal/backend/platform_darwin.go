//go:build darwin

package backend

import "log/slog"

func newPlatform(cfg Config, logger *slog.Logger) (Backend, error) {
	return newDarwinBackend(cfg, logger), nil
}
