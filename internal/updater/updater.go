// Package updater checks GitHub releases for newer sqitchprism builds and
// replaces the running binary on request.
package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"

	"github.com/CaptShanks/sqitchprism/internal/config"
)

const (
	repoSlug         = "CaptShanks/sqitchprism"
	installScriptURL = "https://raw.githubusercontent.com/CaptShanks/sqitchprism/main/install.sh"
	cacheFileName    = "update-check"
)

// detectLatest is swapped out in tests to avoid the network
var detectLatest = func(slug string) (*selfupdate.Release, bool, error) {
	return selfupdate.DetectLatest(slug)
}

// CheckLatest fetches the latest release from GitHub and compares with currentVersion.
// Returns (latestVersion, hasUpdate, err). Callers treat errors as "no update".
func CheckLatest(currentVersion string) (latestVersion string, hasUpdate bool, err error) {
	latest, found, err := detectLatest(repoSlug)
	if err != nil || !found {
		return "", false, err
	}
	latestVersion = strings.TrimPrefix(latest.Version.String(), "v")

	hasUpdate, err = isNewer(latestVersion, currentVersion)
	if err != nil {
		return latestVersion, false, err
	}
	return latestVersion, hasUpdate, nil
}

func isNewer(latest, current string) (bool, error) {
	latestSemver, err := semver.Parse(normalizeVersion(latest))
	if err != nil {
		return false, err
	}
	currentSemver, err := semver.Parse(normalizeVersion(current))
	if err != nil {
		return false, err
	}
	return latestSemver.GT(currentSemver), nil
}

// Upgrade replaces the current binary with the latest release and returns its version
func Upgrade(currentVersion string) (newVersion string, err error) {
	v, err := semver.Parse(normalizeVersion(currentVersion))
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", currentVersion, err)
	}

	latest, err := selfupdate.UpdateSelf(v, repoSlug)
	if err != nil {
		return "", err
	}
	return latest.Version.String(), nil
}

// CurlFallbackMessage returns the message to display when self-update fails.
func CurlFallbackMessage(reason error) string {
	return fmt.Sprintf(`Self-update failed: %v
To upgrade manually, run:
  curl -sSfL %s | sh`, reason, installScriptURL)
}

func normalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "v")
}

type updateCache struct {
	LastCheckEpoch int64  `json:"last_check_epoch"`
	LatestVersion  string `json:"latest_version,omitempty"`
	HasUpdate      bool   `json:"has_update"`
}

func cachePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, cacheFileName), nil
}

// CheckLatestWithCache checks for updates at most once per intervalDays.
// Within the interval the cached answer is returned.
func CheckLatestWithCache(currentVersion string, intervalDays int) (latestVersion string, hasUpdate bool, err error) {
	if intervalDays <= 0 {
		intervalDays = config.DefaultUpdateIntervalDays
	}
	interval := time.Duration(intervalDays) * 24 * time.Hour

	path, err := cachePath()
	if err != nil {
		return CheckLatest(currentVersion)
	}

	if data, err := os.ReadFile(path); err == nil {
		var cache updateCache
		if json.Unmarshal(data, &cache) == nil {
			if time.Since(time.Unix(cache.LastCheckEpoch, 0)) < interval {
				return cache.LatestVersion, cache.HasUpdate, nil
			}
		}
	}

	latest, hasUpdate, err := CheckLatest(currentVersion)
	if err != nil {
		return "", false, err
	}

	cache := updateCache{
		LastCheckEpoch: time.Now().Unix(),
		LatestVersion:  latest,
		HasUpdate:      hasUpdate,
	}
	if data, err := json.Marshal(cache); err == nil {
		_ = os.WriteFile(path, data, 0644)
	}

	return latest, hasUpdate, nil
}

// IsSkipUpdateCheck returns true if SQITCHPRISM_SKIP_UPDATE_CHECK is set.
func IsSkipUpdateCheck() bool {
	return config.IsTruthy(os.Getenv("SQITCHPRISM_SKIP_UPDATE_CHECK"))
}

// UpdateCheckIntervalDays returns the configured interval in days (default 7).
func UpdateCheckIntervalDays() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SQITCHPRISM_UPDATE_CHECK_INTERVAL")))
	if err != nil || n <= 0 {
		return config.DefaultUpdateIntervalDays
	}
	return n
}
