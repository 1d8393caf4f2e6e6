package host

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testVmstat = `nr_free_pages 1930180
nr_zone_inactive_anon 25
pgpgin 8412344
pgpgout 22870576
pswpin 12
pswpout 345
pgalloc_dma 0
`

func TestSwapPages(t *testing.T) {
	withProcFiles(t, map[string]string{"vmstat": testVmstat})
	in, out, err := swapPages()
	require.NoError(t, err)
	require.Equal(t, uint64(12), in)
	require.Equal(t, uint64(345), out)
}

func TestSwapPagesMissingCounters(t *testing.T) {
	withProcFiles(t, map[string]string{"vmstat": "nr_free_pages 1930180\npswpin\n"})
	in, out, err := swapPages()
	require.NoError(t, err)
	require.Zero(t, in)
	require.Zero(t, out)
}

func TestSwapPagesNoFile(t *testing.T) {
	withProcFiles(t, nil)
	_, _, err := swapPages()
	require.Error(t, err)
	require.True(t, os.IsNotExist(errors.Cause(err)), "got %v", err)
}

func TestLiveVirtualMemory(t *testing.T) {
	vm, err := VirtualMemory()
	require.NoError(t, err)
	require.True(t, vm.Total > 0)
	require.True(t, vm.Free <= vm.Total)
	require.Equal(t, vm.Total-vm.Free, vm.Used)
}

func TestLiveSwapMemory(t *testing.T) {
	swap, err := SwapMemory()
	require.NoError(t, err)
	require.True(t, swap.Free <= swap.Total)
	require.Equal(t, swap.Total, swap.Used+swap.Free)
	require.True(t, swap.Percent >= 0 && swap.Percent <= 100)
}
