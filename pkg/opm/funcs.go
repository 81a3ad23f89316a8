package opm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/blang/semver/v4"
	log "github.com/sirupsen/logrus"
)

// DefaultConfig returns the standard install location and the upstream
// operator-registry release endpoints.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		BinPath:    filepath.Join(home, ".local", "bin", "opm"),
		ReleaseURL: "https://github.com/operator-framework/operator-registry/releases/download",
		LatestURL:  "https://api.github.com/repos/operator-framework/operator-registry/releases/latest",
	}
}

// Install ensures the requested opm release is present at cfg.BinPath and
// returns that path. The versioned binary is kept beside the stable path
// with a version suffix, so switching versions never re-downloads one that
// is already present.
func Install(version string, cfg Config) (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("opm release binaries are published for linux only, not %s", runtime.GOOS)
	}

	if version == "latest" {
		resolved, err := resolveLatest(cfg)
		if err != nil {
			return "", err
		}
		version = resolved
		log.Debugf("Identified latest version as: %s", version)
	}

	parsed, err := semver.ParseTolerant(version)
	if err != nil {
		return "", fmt.Errorf("invalid opm version %q: %w", version, err)
	}
	version = parsed.String()

	if err := os.MkdirAll(filepath.Dir(cfg.BinPath), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(cfg.BinPath), err)
	}

	versioned := cfg.BinPath + "-" + version
	if _, err := os.Stat(versioned); err != nil {
		if err := download(releaseURL(cfg, version), versioned); err != nil {
			return "", err
		}
	}

	// Point the stable path at the requested version. A stale symlink or a
	// plain file left at the path is replaced.
	if _, err := os.Lstat(cfg.BinPath); err == nil {
		if err := os.Remove(cfg.BinPath); err != nil {
			return "", err
		}
	}
	if err := os.Symlink(versioned, cfg.BinPath); err != nil {
		return "", err
	}

	return cfg.BinPath, nil
}

func releaseURL(cfg Config, version string) string {
	return cfg.ReleaseURL + "/v" + version + "/linux-amd64-opm"
}

func download(url, dest string) error {
	log.Debugf("Downloading %s", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}

	log.Debugf("Saving to %s", dest)
	return os.WriteFile(dest, data, 0o550)
}

func resolveLatest(cfg Config) (string, error) {
	resp, err := http.Get(cfg.LatestURL)
	if err != nil {
		return "", fmt.Errorf("resolving latest opm release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resolving latest opm release: unexpected status %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("resolving latest opm release: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("release feed %s did not include a tag name", cfg.LatestURL)
	}

	return strings.TrimPrefix(release.TagName, "v"), nil
}
