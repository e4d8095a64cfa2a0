// Package bridge is the external boundary adapter (spec §6.3): it
// translates host-bridge calls into Engine methods and republishes the
// EventBus as Wails events. Path/URL arguments are validated here,
// before they ever reach the Engine.
package bridge

import (
	"net/url"
	"path/filepath"
	"strings"

	"downforge/internal/errors"
)

// guardPath requires an absolute filesystem path, accepting an
// optional file:// scheme (spec §6.3).
func guardPath(path string) (string, error) {
	if strings.HasPrefix(path, "file://") {
		path = strings.TrimPrefix(path, "file://")
	}
	if path == "" || !filepath.IsAbs(path) {
		return "", errors.NewWithMessage("bridge.guardPath", errors.ErrInvalidPath, "path must be absolute")
	}
	return filepath.Clean(path), nil
}

// guardURL requires an http(s) URL with a non-empty host (spec §6.3).
func guardURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.NewWithMessage("bridge.guardURL", errors.ErrInvalidURL, "malformed URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.NewWithMessage("bridge.guardURL", errors.ErrInvalidURL, "URL scheme must be http or https")
	}
	if parsed.Host == "" {
		return "", errors.NewWithMessage("bridge.guardURL", errors.ErrInvalidURL, "URL must have a non-empty host")
	}
	return rawURL, nil
}
