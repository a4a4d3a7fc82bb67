package buildinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPrefersInjectedValues(t *testing.T) {
	previousVersion, previousCommit, previousDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = previousVersion, previousCommit, previousDate
	})

	Version, Commit, Date = "v1.0.0", "cafe", "2026-10-01T00:00:00Z"

	info := Get()
	require.Equal(t, "v1.0.0", info.Version)
	require.Equal(t, "cafe", info.Commit)
	require.Equal(t, "2026-10-01T00:00:00Z", info.Date)
	require.Equal(t, runtime.GOOS, info.OS)
}

func TestGetNeverEmpty(t *testing.T) {
	previousVersion, previousCommit, previousDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = previousVersion, previousCommit, previousDate
	})

	Version, Commit, Date = "", "", ""

	info := Get()
	require.NotEmpty(t, info.Version)
	require.NotEmpty(t, info.Commit)
	require.NotEmpty(t, info.Date)
}

func TestInfoStringHasStableFormat(t *testing.T) {
	info := Info{
		Version: "v1.2.3",
		Commit:  "abc123",
		Date:    "2026-01-01T00:00:00Z",
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}

	lines := strings.Split(info.String(), "\n")
	require.Len(t, lines, 5)

	expectedPrefixes := []string{
		"gosha ",
		"commit: ",
		"built:  ",
		"go:     ",
		"os/arch:",
	}
	for i, prefix := range expectedPrefixes {
		require.True(t, strings.HasPrefix(lines[i], prefix), "line %d expected prefix %q, got %q", i+1, prefix, lines[i])
	}
}
