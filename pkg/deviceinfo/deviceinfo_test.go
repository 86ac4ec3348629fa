package deviceinfo

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalProviderSectorSize(t *testing.T) {
	logical, physical, err := LocalProvider{}.GetSectorSize(t.TempDir())
	require.NoError(t, err)
	require.Greater(t, logical, int64(0))
	require.Equal(t, logical, physical, "statfs cannot distinguish logical from physical sector size")
}

func TestLocalProviderDriveDetails(t *testing.T) {
	details, err := LocalProvider{}.GetDriveDetails(t.TempDir())
	require.NoError(t, err)
	require.Greater(t, details.LogicalSector, int64(0))
	require.GreaterOrEqual(t, details.TotalBytes, int64(0))
}

func TestRemoteProviderRoundTripsThroughServer(t *testing.T) {
	dir := t.TempDir()
	srv := &Server{Provider: LocalProvider{}}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	remote := NewRemoteProvider(strings.TrimPrefix(ts.URL, "http://"))

	wantLogical, wantPhysical, err := LocalProvider{}.GetSectorSize(dir)
	require.NoError(t, err)

	gotLogical, gotPhysical, err := remote.GetSectorSize(dir)
	require.NoError(t, err)
	require.Equal(t, wantLogical, gotLogical)
	require.Equal(t, wantPhysical, gotPhysical)

	details, err := remote.GetDriveDetails(dir)
	require.NoError(t, err)
	require.Equal(t, wantLogical, details.LogicalSector)
}
