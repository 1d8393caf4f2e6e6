package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecomposeDevNumber(t *testing.T) {
	for _, tt := range []struct {
		dev  uint64
		want blockDev
	}{
		{dev: 66305, want: blockDev{259, 1}},
		{dev: 26266112, want: blockDev{202, 6400}},
		{dev: 51713, want: blockDev{202, 1}},
	} {
		if got := decomposeDevNumber(tt.dev); got != tt.want {
			t.Fatalf("got: %+v; want: %+v", got, tt.want)
		}
	}
}

// withProcFiles points procRoot at a temporary directory holding the given files for the duration of the
// test.
func withProcFiles(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}
	old := procRoot
	procRoot = dir
	t.Cleanup(func() { procRoot = old })
}

const testPartitions = `major minor  #blocks  name

   8        0  488386584 sda
   8        1     524288 sda1
   8        2  487861248 sda2
   8       16  976762584 sdb
  11        0    1048575 sr0
`

// The sda lines have the 14 columns of older kernels, sdb the 18 of 4.18 and sda2 the 20 of 5.5.
const testDiskStats = `   8       0 sda 1000 10 20000 300 500 5 8000 700 0 900 1000
   8       1 sda1 40 0 800 10 2 0 16 1 0 11 11
   8       2 sda2 960 10 19200 290 498 5 7984 699 0 889 989 0 0 0 0 0 0
   8      16 sdb 10 0 80 1 0 0 0 0 0 1 1 0 0 0 0
  11       0 sr0 0 0 0 0 0 0 0 0 0 0 0
`

func TestPartitionNames(t *testing.T) {
	withProcFiles(t, map[string]string{"partitions": testPartitions})
	names, err := partitionNames()
	require.NoError(t, err)
	// sda has partitions so only they are reported; sdb has none.
	require.Equal(t, map[string]struct{}{
		"sda1": {},
		"sda2": {},
		"sdb":  {},
		"sr0":  {},
	}, names)
}

func TestDiskIOCounters(t *testing.T) {
	withProcFiles(t, map[string]string{
		"partitions": testPartitions,
		"diskstats":  testDiskStats,
	})
	counters, err := DiskIOCounters()
	require.NoError(t, err)
	require.Len(t, counters, 4)
	require.Equal(t, &DiskIOCountersStat{
		Name:       "sda2",
		ReadCount:  960,
		WriteCount: 498,
		ReadBytes:  19200 * 512,
		WriteBytes: 7984 * 512,
		ReadTime:   290,
		WriteTime:  699,
	}, counters["sda2"])
	require.Equal(t, uint64(80*512), counters["sdb"].ReadBytes)
	require.NotContains(t, counters, "sda")
}

func TestReadDiskStatsShortLine(t *testing.T) {
	withProcFiles(t, map[string]string{"diskstats": "   8       0 sda 1000 10 20000\n"})
	_, err := readDiskStats()
	require.Error(t, err)
}

func TestDiskUsage(t *testing.T) {
	usage, err := DiskUsage(t.TempDir())
	require.NoError(t, err)
	require.True(t, usage.Total > 0)
	require.True(t, usage.Used <= usage.Total)
	require.True(t, usage.Percent >= 0 && usage.Percent <= 100)
}
