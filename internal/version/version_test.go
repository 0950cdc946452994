package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildInfo(t *testing.T, version, commit, built string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = version, commit, built
}

func TestString(t *testing.T) {
	withBuildInfo(t, "1.4.0", "abc1234", "2024-06-15T10:00:00Z")

	assert.Equal(t, "1.4.0 (abc1234) built 2024-06-15T10:00:00Z", String())
}

func TestUserAgent(t *testing.T) {
	withBuildInfo(t, "dev", "unknown", "unknown")

	assert.Equal(t, "mse-sync/dev (+unknown)", UserAgent())
}

func TestFillFromBuildInfo(t *testing.T) {
	withBuildInfo(t, "dev", "unknown", "unknown")

	fillFromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2024-06-15T10:00:00Z"},
		},
	})

	assert.Equal(t, "v0.3.1", Version)
	assert.Equal(t, "0123456", Commit)
	assert.Equal(t, "2024-06-15T10:00:00Z", BuildTime)
}

func TestFillFromBuildInfo_KeepsLdflags(t *testing.T) {
	withBuildInfo(t, "1.4.0", "abc1234", "2024-06-15T10:00:00Z")

	fillFromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}},
	})

	assert.Equal(t, "1.4.0", Version)
	assert.Equal(t, "abc1234", Commit)
}
