package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AppName is the canonical application name
const AppName = "echobridge"

// HomeDir returns the user's configuration home: ~/.echobridge
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// Bootstrap ensures every directory the service writes into exists: the
// sqlite database parent, the local asset directory and the transcoding temp
// directory. Safe to call multiple times.
func Bootstrap(cfg *Config, logger *zap.Logger) error {
	dirs := []string{HomeDir()}

	if cfg.Database.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." && dir != "" {
			dirs = append(dirs, dir)
		}
	}
	if cfg.Assets.Backend == "local" && cfg.Assets.Dir != "" {
		dirs = append(dirs, cfg.Assets.Dir)
	}
	if cfg.Transcode.TempDir != "" {
		dirs = append(dirs, cfg.Transcode.TempDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	logger.Debug("EchoBridge directories OK", zap.Strings("dirs", dirs))
	return nil
}
