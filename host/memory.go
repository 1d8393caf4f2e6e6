package host

import (
	"strconv"
	"strings"

	proc "github.com/cespare/goproc"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// VirtualMemoryStat describes system memory. Sizes are in bytes.
type VirtualMemoryStat struct {
	Total     uint64
	Available uint64 // free + buffers + cached
	Percent   float64
	Used      uint64
	Free      uint64
	Active    uint64
	Inactive  uint64
	Buffers   uint64
	Cached    uint64
}

// SwapMemoryStat describes swap usage. Sin and Sout are the cumulative bytes swapped in and out since boot.
type SwapMemoryStat struct {
	Total   uint64
	Used    uint64
	Free    uint64
	Percent float64
	Sin     uint64
	Sout    uint64
}

func sysinfo() (*unix.Sysinfo_t, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return nil, errors.Wrap(err, "sysinfo")
	}
	return &info, nil
}

// VirtualMemory returns current system memory usage.
func VirtualMemory() (*VirtualMemoryStat, error) {
	info, err := sysinfo()
	if err != nil {
		return nil, err
	}
	unit := uint64(info.Unit)
	total := uint64(info.Totalram) * unit
	free := uint64(info.Freeram) * unit
	buffers := uint64(info.Bufferram) * unit

	memInfo, err := proc.MemInfo()
	if err != nil {
		return nil, errors.Wrap(err, "reading meminfo")
	}
	// goproc scales kB values by 1000 rather than 1024.
	bytes := func(key string) uint64 { return memInfo[key] / 1000 * 1024 }
	cached := bytes("Cached")
	avail := free + buffers + cached
	return &VirtualMemoryStat{
		Total:     total,
		Available: avail,
		Percent:   usagePercent(total-avail, total),
		Used:      total - free,
		Free:      free,
		Active:    bytes("Active"),
		Inactive:  bytes("Inactive"),
		Buffers:   buffers,
		Cached:    cached,
	}, nil
}

// SwapMemory returns current swap usage.
func SwapMemory() (*SwapMemoryStat, error) {
	info, err := sysinfo()
	if err != nil {
		return nil, err
	}
	unit := uint64(info.Unit)
	total := uint64(info.Totalswap) * unit
	free := uint64(info.Freeswap) * unit
	sin, sout, err := swapPages()
	if err != nil {
		return nil, err
	}
	return &SwapMemoryStat{
		Total:   total,
		Used:    total - free,
		Free:    free,
		Percent: usagePercent(total-free, total),
		// vmstat counts 4kB pages.
		Sin:  sin * 4 * 1024,
		Sout: sout * 4 * 1024,
	}, nil
}

// swapPages returns the pswpin and pswpout counters from /proc/vmstat. Exotic kernels may lack them; they
// are reported as 0.
func swapPages() (in, out uint64, err error) {
	name := procPath("vmstat")
	err = scanLines(name, func(line string) bool {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return true
		}
		var dst *uint64
		switch fields[0] {
		case "pswpin":
			dst = &in
		case "pswpout":
			dst = &out
		default:
			return true
		}
		*dst, _ = strconv.ParseUint(fields[1], 10, 64)
		return true
	})
	return in, out, errors.Wrapf(err, "reading %s", name)
}

func usagePercent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
