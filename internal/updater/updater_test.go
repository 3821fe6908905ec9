package updater

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

func stubRelease(t *testing.T, version string, err error) *int {
	t.Helper()
	calls := 0
	orig := detectLatest
	detectLatest = func(string) (*selfupdate.Release, bool, error) {
		calls++
		if err != nil {
			return nil, false, err
		}
		return &selfupdate.Release{Version: semver.MustParse(version)}, true, nil
	}
	t.Cleanup(func() { detectLatest = orig })
	return &calls
}

func TestCurlFallbackMessage(t *testing.T) {
	msg := CurlFallbackMessage(os.ErrPermission)
	if !strings.Contains(msg, "Self-update failed") {
		t.Errorf("expected message to contain 'Self-update failed', got: %s", msg)
	}
	if !strings.Contains(msg, "curl") || !strings.Contains(msg, "install.sh") {
		t.Errorf("expected curl install hint, got: %s", msg)
	}
}

func TestCheckLatest(t *testing.T) {
	stubRelease(t, "1.2.0", nil)

	latest, hasUpdate, err := CheckLatest("v1.1.9")
	if err != nil {
		t.Fatalf("CheckLatest failed: %v", err)
	}
	if latest != "1.2.0" || !hasUpdate {
		t.Errorf("got (%s, %v), want (1.2.0, true)", latest, hasUpdate)
	}

	_, hasUpdate, _ = CheckLatest("1.2.0")
	if hasUpdate {
		t.Error("same version should not be an update")
	}
}

func TestCheckLatestPropagatesError(t *testing.T) {
	stubRelease(t, "", errors.New("rate limited"))
	if _, _, err := CheckLatest("0.1.0"); err == nil {
		t.Error("expected error")
	}
}

func TestCheckLatestWithCacheUsesFreshCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	calls := stubRelease(t, "2.0.0", nil)

	path, err := cachePath()
	if err != nil {
		t.Fatalf("cachePath failed: %v", err)
	}
	data, _ := json.Marshal(updateCache{
		LastCheckEpoch: time.Now().Unix(),
		LatestVersion:  "1.5.0",
		HasUpdate:      true,
	})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	latest, hasUpdate, err := CheckLatestWithCache("1.0.0", 7)
	if err != nil {
		t.Fatalf("CheckLatestWithCache failed: %v", err)
	}
	if latest != "1.5.0" || !hasUpdate {
		t.Errorf("expected cached answer, got (%s, %v)", latest, hasUpdate)
	}
	if *calls != 0 {
		t.Errorf("fresh cache should skip the network, got %d calls", *calls)
	}
}

func TestCheckLatestWithCacheRefreshesStaleCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	calls := stubRelease(t, "2.0.0", nil)

	latest, _, err := CheckLatestWithCache("1.0.0", 7)
	if err != nil {
		t.Fatalf("CheckLatestWithCache failed: %v", err)
	}
	if latest != "2.0.0" || *calls != 1 {
		t.Errorf("expected one remote check returning 2.0.0, got %s after %d calls", latest, *calls)
	}

	path, _ := cachePath()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file should be written: %v", err)
	}
}

func TestIsSkipUpdateCheck(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "on"} {
		t.Setenv("SQITCHPRISM_SKIP_UPDATE_CHECK", v)
		if !IsSkipUpdateCheck() {
			t.Errorf("IsSkipUpdateCheck() should be true for %q", v)
		}
	}

	t.Setenv("SQITCHPRISM_SKIP_UPDATE_CHECK", "0")
	if IsSkipUpdateCheck() {
		t.Error("IsSkipUpdateCheck() should be false for '0'")
	}
}

func TestUpdateCheckIntervalDays(t *testing.T) {
	t.Setenv("SQITCHPRISM_UPDATE_CHECK_INTERVAL", "")
	if got := UpdateCheckIntervalDays(); got != 7 {
		t.Errorf("default interval should be 7, got %d", got)
	}

	t.Setenv("SQITCHPRISM_UPDATE_CHECK_INTERVAL", "14")
	if got := UpdateCheckIntervalDays(); got != 14 {
		t.Errorf("interval should be 14, got %d", got)
	}

	t.Setenv("SQITCHPRISM_UPDATE_CHECK_INTERVAL", "invalid")
	if got := UpdateCheckIntervalDays(); got != 7 {
		t.Errorf("invalid interval should fallback to 7, got %d", got)
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path, err := cachePath()
	if err != nil {
		t.Fatalf("cachePath failed: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("cachePath should return absolute path, got: %s", path)
	}
}
