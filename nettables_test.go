package psproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	testTCP = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0100007F:0050 00000000:0000 0A 00000000:00000000 00:00000000 00000000     0        0 1111 1 0000000000000000 100 0 0 10 0
   1: 0100007F:9C40 0100007F:0050 01 00000000:00000000 00:00000000 00000000  1000        0 9999 1 0000000000000000 20 4 30 10 -1
`
	testTCP6 = `  sl  local_address                         remote_address                        st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0000000000000000FFFF00000100007F:9E49 0000000000000000FFFF00000100007F:0050 01 00000000:00000000 00:00000000 00000000  1000        0 2222 1 0000000000000000 20 4 30 10 -1
`
	testUDP = `   sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode ref pointer drops
  120: 00000000:0035 00000000:0000 07 00000000:00000000 00:00000000 00000000     0        0 3333 2 0000000000000000 0
`
	testUDP6 = `  sl  local_address                         remote_address                        st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode ref pointer drops
`
	testUnix = `Num       RefCount Protocol Flags    Type St Inode Path
0000000000000000: 00000002 00000000 00010000 0001 01 4444 /run/test.sock
0000000000000000: 00000002 00000000 00000000 0002 01 5555
0000000000000000: 00000003 00000000 00000000 0001 03 6666 @/tmp/.X11-unix/X0
`
)

// writeNetTables writes the given tables into root/net.
func writeNetTables(t *testing.T, root string, tables map[string]string) {
	t.Helper()
	dir := filepath.Join(root, "net")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, contents := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}
}

func TestScanInetTable(t *testing.T) {
	root := t.TempDir()
	writeNetTables(t, root, map[string]string{"tcp": testTCP, "udp6": testUDP6})
	fs := NewFS(root)

	var rows []inetRow
	err := fs.scanInetTable("tcp", func(row *inetRow) error {
		rows = append(rows, *row)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []inetRow{
		{Local: "0100007F:0050", Remote: "00000000:0000", State: "0A", Inode: "1111"},
		{Local: "0100007F:9C40", Remote: "0100007F:0050", State: "01", Inode: "9999"},
	}, rows)

	// Header only.
	rows = nil
	require.NoError(t, fs.scanInetTable("udp6", func(row *inetRow) error {
		rows = append(rows, *row)
		return nil
	}))
	require.Empty(t, rows)
}

func TestScanInetTableMissing(t *testing.T) {
	fs := NewFS(t.TempDir())
	noop := func(*inetRow) error { return nil }
	// No IPv6 support in the kernel.
	require.NoError(t, fs.scanInetTable("tcp6", noop))
	require.NoError(t, fs.scanInetTable("udp6", noop))
	require.True(t, isGone(fs.scanInetTable("tcp", noop)))
}

func TestScanInetTableShortRow(t *testing.T) {
	root := t.TempDir()
	writeNetTables(t, root, map[string]string{
		"tcp": "  sl  local_address rem_address   st\n   0: 0100007F:0050 00000000:0000 0A\n",
	})
	err := NewFS(root).scanInetTable("tcp", func(*inetRow) error { return nil })
	require.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestScanInetTableStops(t *testing.T) {
	root := t.TempDir()
	writeNetTables(t, root, map[string]string{"tcp": testTCP})
	stop := errors.New("stop")
	n := 0
	err := NewFS(root).scanInetTable("tcp", func(*inetRow) error {
		n++
		return stop
	})
	require.Equal(t, stop, err)
	require.Equal(t, 1, n)
}

func TestScanUnixTable(t *testing.T) {
	root := t.TempDir()
	writeNetTables(t, root, map[string]string{"unix": testUnix})
	var rows []unixRow
	err := NewFS(root).scanUnixTable(func(row *unixRow) error {
		rows = append(rows, *row)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []unixRow{
		{Type: SOCK_STREAM, State: "01", Inode: "4444", Path: "/run/test.sock"},
		{Type: SOCK_DGRAM, State: "01", Inode: "5555"},
		{Type: SOCK_STREAM, State: "03", Inode: "6666", Path: "@/tmp/.X11-unix/X0"},
	}, rows)
}

func TestScanUnixTablePathWithSpaces(t *testing.T) {
	root := t.TempDir()
	writeNetTables(t, root, map[string]string{
		"unix": "Num       RefCount Protocol Flags    Type St Inode Path\n" +
			"0000000000000000: 00000002 00000000 00010000 0001 01   777 /tmp/my sock\n" +
			"0000000000000000: 00000002 00000000 00010000 0001 01   778 /tmp/a  b\n",
	})
	var paths []string
	err := NewFS(root).scanUnixTable(func(row *unixRow) error {
		paths = append(paths, row.Path)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/tmp/my sock", "/tmp/a  b"}, paths)
}

func TestScanUnixTableMalformed(t *testing.T) {
	for _, table := range []string{
		"Num RefCount Protocol Flags Type St Inode Path\n0000000000000000: 00000002 00000000 00010000 0001 01\n",
		"Num RefCount Protocol Flags Type St Inode Path\n0000000000000000: 00000002 00000000 00010000 zz 01 4444\n",
	} {
		root := t.TempDir()
		writeNetTables(t, root, map[string]string{"unix": table})
		err := NewFS(root).scanUnixTable(func(*unixRow) error { return nil })
		require.True(t, errors.Is(err, ErrMalformed), "got %v", err)
	}
	// Unlike the IPv6 tables, a missing unix table is an error.
	require.True(t, isGone(NewFS(t.TempDir()).scanUnixTable(func(*unixRow) error { return nil })))
}

func TestFamilyAndTypeStrings(t *testing.T) {
	require.Equal(t, "AF_INET6", AF_INET6.String())
	require.Equal(t, "Family(99)", Family(99).String())
	require.Equal(t, "SOCK_DGRAM", SOCK_DGRAM.String())
	require.Equal(t, "SocketType(42)", SocketType(42).String())
}
