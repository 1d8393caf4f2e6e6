package host

import (
	"strconv"
	"strings"

	proc "github.com/cespare/goproc"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sectorSize is the unit of the sector counts in /proc/diskstats. It has been 512 bytes since 2.4,
// regardless of the device's real sector size (see `man iostat`).
const sectorSize = 512

// DiskIOCountersStat holds cumulative I/O statistics for one disk or partition.
type DiskIOCountersStat struct {
	Name       string
	ReadCount  uint64
	WriteCount uint64
	ReadBytes  uint64
	WriteBytes uint64
	ReadTime   uint64 // milliseconds
	WriteTime  uint64 // milliseconds
}

const (
	majorMask uint64 = 0xfff
	minorMask uint64 = 0xff
)

// A blockDev is a Linux block device number.
type blockDev struct {
	major int
	minor int
}

// decomposeDevNumber extracts the major and minor device numbers for a Linux
// block device. See the major/minor macros in Linux's sysmacros.h.
func decomposeDevNumber(dev uint64) blockDev {
	return blockDev{
		major: int(((dev >> 8) & majorMask) | ((dev >> 32) & ^majorMask)),
		minor: int((dev & minorMask) | ((dev >> 12) & ^minorMask)),
	}
}

type diskStatsEntry struct {
	dev blockDev
	DiskIOCountersStat
}

// diskStatsMinFields is the column count of /proc/diskstats before 4.18. Later kernels append discard and
// flush statistics, which are ignored.
const diskStatsMinFields = 14

// readDiskStats parses /proc/diskstats. The line format is documented in Linux's
// Documentation/admin-guide/iostats.rst.
func readDiskStats() ([]diskStatsEntry, error) {
	name := procPath("diskstats")
	var entries []diskStatsEntry
	var parseErr error
	err := scanLines(name, func(line string) bool {
		fields := strings.Fields(line)
		if len(fields) < diskStatsMinFields {
			parseErr = errors.Errorf("%s: line has %d fields; want at least %d", name, len(fields), diskStatsMinFields)
			return false
		}
		var nums [diskStatsMinFields]uint64
		for i, f := range fields {
			if i == 2 || i >= diskStatsMinFields {
				continue
			}
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				parseErr = errors.Wrapf(err, "%s: bad field", name)
				return false
			}
			nums[i] = v
		}
		entries = append(entries, diskStatsEntry{
			dev: blockDev{major: int(nums[0]), minor: int(nums[1])},
			DiskIOCountersStat: DiskIOCountersStat{
				Name:       fields[2],
				ReadCount:  nums[3],
				ReadBytes:  nums[5] * sectorSize,
				ReadTime:   nums[6],
				WriteCount: nums[7],
				WriteBytes: nums[9] * sectorSize,
				WriteTime:  nums[10],
			},
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, parseErr
}

// partitionNames lists the devices in /proc/partitions worth reporting: every partition (sda1), plus whole
// disks (sdb) that have no partitions.
func partitionNames() (map[string]struct{}, error) {
	var lines []string
	err := scanLines(procPath("partitions"), func(line string) bool {
		lines = append(lines, line)
		return true
	})
	if err != nil {
		return nil, err
	}
	var names []string
	// The first two lines are a header and a blank line. Walking backwards sees sda1 before sda.
	for i := len(lines) - 1; i >= 2; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) < 4 {
			continue
		}
		name := fields[3]
		if last := name[len(name)-1]; last >= '0' && last <= '9' {
			names = append(names, name)
			continue
		}
		if len(names) == 0 || !strings.HasPrefix(names[len(names)-1], name) {
			names = append(names, name)
		}
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

// DiskIOCounters returns I/O statistics for each partition, keyed by device name.
func DiskIOCounters() (map[string]*DiskIOCountersStat, error) {
	names, err := partitionNames()
	if err != nil {
		return nil, err
	}
	entries, err := readDiskStats()
	if err != nil {
		return nil, err
	}
	result := make(map[string]*DiskIOCountersStat)
	for i := range entries {
		if _, ok := names[entries[i].Name]; ok {
			result[entries[i].Name] = &entries[i].DiskIOCountersStat
		}
	}
	return result, nil
}

// DiskIOCountersForPath returns I/O statistics for the device holding the file at path.
func DiskIOCountersForPath(path string) (*DiskIOCountersStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}
	bd := decomposeDevNumber(uint64(st.Dev))
	entries, err := readDiskStats()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].dev == bd {
			return &entries[i].DiskIOCountersStat, nil
		}
	}
	return nil, errors.Errorf("cannot determine stats for device at %s", path)
}

// A Partition is a mounted filesystem.
type Partition struct {
	Device     string
	Mountpoint string
	Fstype     string
	Opts       string
}

// DiskPartitions returns mounted partitions. Unless all is set, only filesystems on physical devices are
// included (no proc, tmpfs, cgroup, and so on).
func DiskPartitions(all bool) ([]Partition, error) {
	physical := make(map[string]struct{})
	err := scanLines(procPath("filesystems"), func(line string) bool {
		if !strings.HasPrefix(line, "nodev") {
			physical[strings.TrimSpace(line)] = struct{}{}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	mounts, err := proc.Mounts()
	if err != nil {
		return nil, errors.Wrap(err, "reading mounts")
	}
	var parts []Partition
	for _, m := range mounts {
		device := m.Spec
		if device == "none" {
			device = ""
		}
		if !all {
			if _, ok := physical[m.Vfstype]; device == "" || !ok {
				continue
			}
		}
		parts = append(parts, Partition{
			Device:     device,
			Mountpoint: m.File,
			Fstype:     m.Vfstype,
			Opts:       strings.Join(m.Mntops, ","),
		})
	}
	return parts, nil
}

// DiskUsageStat describes the space on a filesystem, in bytes.
type DiskUsageStat struct {
	Total   uint64
	Used    uint64
	Free    uint64 // available to unprivileged users
	Percent float64
}

// DiskUsage returns usage statistics for the filesystem holding path.
//
// statfs gives the number of blocks (f_blocks), free blocks (f_bfree) and the blocks available to
// non-privileged users (f_bavail), which is slightly less than free. Used is blocks - avail: blocks that are
// free but reserved for root count as used. df instead reports (blocks - free) / (blocks - free + avail),
// ignoring the reserved blocks entirely, so the percentages differ slightly from df's.
func DiskUsage(path string) (*DiskUsageStat, error) {
	var buf unix.Statfs_t
	if err := unix.Statfs(path, &buf); err != nil {
		return nil, err
	}
	bsize := uint64(buf.Bsize)
	total := buf.Blocks * bsize
	used := (buf.Blocks - buf.Bavail) * bsize
	return &DiskUsageStat{
		Total:   total,
		Used:    used,
		Free:    buf.Bavail * bsize,
		Percent: usagePercent(used, total),
	}, nil
}
