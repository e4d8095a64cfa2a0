package app

import (
	"os"
	"path/filepath"
)

// DevMode is set at build time via ldflags to isolate dev environment
// from production, e.g. -ldflags "-X 'downforge/internal/app.DevMode=true'".
var DevMode string = "false"

func appDirName() string {
	if DevMode == "true" {
		return "DownForge-dev"
	}
	return "DownForge"
}

// Paths holds the application's persistent directories.
type Paths struct {
	AppData string // config dir / DownForge: downloads.json, logs/, resumecache.db
	Cache   string // cache dir / DownForge: optional resume-data blobs (spec §6.2)
}

// GetPaths resolves the application paths for the current OS.
func GetPaths() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}

	return &Paths{
		AppData: filepath.Join(configDir, appDirName()),
		Cache:   filepath.Join(cacheDir, appDirName()),
	}, nil
}

// EnsureDirectories creates every directory Paths names.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.AppData, p.Cache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
