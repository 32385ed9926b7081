package filecache

import (
	"fmt"
	"path/filepath"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
)

// Config holds the directory layout of one FileCache segment.
//
// Every configured directory must be an absolute path. Relative paths are
// rejected rather than resolved because a pass may chdir before the stage
// runs, silently splitting the cache across working directories.
type Config struct {
	// CacheDir is where freshly collected records are staged. Required.
	CacheDir string `json:"cache_dir"`

	// ArchiveDir receives delivered records under YYYY/MM/DD partitions.
	// Optional; without it (and without JunkDir) Store is a no-op.
	ArchiveDir string `json:"archive_dir"`

	// JunkDir receives records a sink rejected definitively. Optional;
	// when only one of ArchiveDir/JunkDir is set it serves both
	// dispositions and the record status tells them apart.
	JunkDir string `json:"junk_dir"`

	// FSync syncs file contents to disk before the rename that publishes
	// them. Off by default; process-crash safety does not need it, power-
	// loss safety does.
	FSync bool `json:"fsync"`
}

// DefaultConfig returns the default FileCache configuration.
func DefaultConfig() Config {
	return Config{
		FSync: false,
	}
}

// parseConfig reads the segment detail keys into a Config.
func parseConfig(detail map[string]any) Config {
	cfg := DefaultConfig()
	cfg.CacheDir = config.GetString(detail, "cache_dir", "")
	cfg.ArchiveDir = config.GetString(detail, "archive_dir", "")
	cfg.JunkDir = config.GetString(detail, "junk_dir", "")
	cfg.FSync = config.GetBool(detail, "fsync", cfg.FSync)
	return cfg
}

// Validate checks the directory layout.
func (c Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("%w: cache_dir", errors.ErrMissingConfig)
	}
	for key, dir := range map[string]string{
		"cache_dir":   c.CacheDir,
		"archive_dir": c.ArchiveDir,
		"junk_dir":    c.JunkDir,
	} {
		if dir != "" && !filepath.IsAbs(dir) {
			return fmt.Errorf("%w: %s %q", errors.ErrRelativePath, key, dir)
		}
	}
	return nil
}

// directories returns the configured directories, cache first.
func (c Config) directories() []string {
	dirs := []string{c.CacheDir}
	if c.ArchiveDir != "" {
		dirs = append(dirs, c.ArchiveDir)
	}
	if c.JunkDir != "" {
		dirs = append(dirs, c.JunkDir)
	}
	return dirs
}
