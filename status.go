package psproc

import (
	"os"
	"strconv"
	"strings"
)

// A Status is a process run state, as shown in the State line of /proc/<pid>/status.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSleeping    Status = "sleeping"
	StatusDiskSleep   Status = "disk-sleep"
	StatusStopped     Status = "stopped"
	StatusTracingStop Status = "tracing-stop"
	StatusZombie      Status = "zombie"
	StatusDead        Status = "dead"
	StatusWakeKill    Status = "wake-kill"
	StatusWaking      Status = "waking"
	StatusUnknown     Status = "?"
)

// From fs/proc/array.c.
var procStatuses = map[string]Status{
	"R": StatusRunning,
	"S": StatusSleeping,
	"D": StatusDiskSleep,
	"T": StatusStopped,
	"t": StatusTracingStop,
	"Z": StatusZombie,
	"X": StatusDead,
	"x": StatusDead,
	"K": StatusWakeKill,
	"W": StatusWaking,
}

// Status returns the process's run state.
func (p *Process) Status() (_ Status, err error) {
	defer p.wrap(&err)
	found, err := lookupKeys(p.path("status"), "State")
	if err != nil {
		return "", err
	}
	state := found["State"]
	if len(state) == 0 {
		return "", malformedf("empty State line")
	}
	if s, ok := procStatuses[state[0]]; ok {
		return s, nil
	}
	return StatusUnknown, nil
}

// PPid returns the pid of the process's parent.
func (p *Process) PPid() (ppid int, err error) {
	defer p.wrap(&err)
	found, err := lookupUints(p.path("status"), "PPid")
	if err != nil {
		return 0, err
	}
	return int(found["PPid"]), nil
}

// NumThreads returns the number of threads in the process.
func (p *Process) NumThreads() (n int, err error) {
	defer p.wrap(&err)
	found, err := lookupUints(p.path("status"), "Threads")
	if err != nil {
		return 0, err
	}
	return int(found["Threads"]), nil
}

// CtxSwitches counts the context switches of a process.
type CtxSwitches struct {
	Voluntary   uint64
	Involuntary uint64
}

// NumCtxSwitches returns the number of voluntary and involuntary context switches of the process. Kernels
// older than 2.6.23 don't report these; that is an ErrMalformed error.
func (p *Process) NumCtxSwitches() (_ CtxSwitches, err error) {
	defer p.wrap(&err)
	found, err := lookupUints(p.path("status"), "voluntary_ctxt_switches", "nonvoluntary_ctxt_switches")
	if err != nil {
		return CtxSwitches{}, err
	}
	return CtxSwitches{
		Voluntary:   found["voluntary_ctxt_switches"],
		Involuntary: found["nonvoluntary_ctxt_switches"],
	}, nil
}

// IDs is a real/effective/saved triple of user or group ids.
type IDs struct {
	Real      int
	Effective int
	Saved     int
}

// Uids returns the process's user ids.
func (p *Process) Uids() (_ IDs, err error) {
	defer p.wrap(&err)
	return p.readIDs("Uid")
}

// Gids returns the process's group ids.
func (p *Process) Gids() (_ IDs, err error) {
	defer p.wrap(&err)
	return p.readIDs("Gid")
}

func (p *Process) readIDs(key string) (IDs, error) {
	found, err := lookupKeys(p.path("status"), key)
	if err != nil {
		return IDs{}, err
	}
	// Uid: real effective saved filesystem
	values := found[key]
	if len(values) < 3 {
		return IDs{}, malformedf("%s line has %d values", key, len(values))
	}
	var ids [3]int
	for i := range ids {
		if ids[i], err = strconv.Atoi(values[i]); err != nil {
			return IDs{}, malformedf("%s line: %s", key, err)
		}
	}
	return IDs{Real: ids[0], Effective: ids[1], Saved: ids[2]}, nil
}

// IOCounters are a process's I/O statistics from /proc/<pid>/io.
type IOCounters struct {
	ReadCount  uint64
	WriteCount uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// IOCounters returns the process's I/O counters. This requires a kernel built with task I/O accounting; if
// that is missing, the error is ErrUnsupported.
func (p *Process) IOCounters() (_ IOCounters, err error) {
	if !p.fs.Capabilities().IOCounters {
		return IOCounters{}, unsupportedf("couldn't find %s (kernel too old?)", p.path("io"))
	}
	defer p.wrap(&err)
	proc, err := p.procfsProc()
	if err != nil {
		return IOCounters{}, err
	}
	pio, err := proc.IO()
	if err != nil {
		if isGone(err) || isPermission(err) {
			return IOCounters{}, err
		}
		return IOCounters{}, malformedf("%s: %s", p.path("io"), err)
	}
	return IOCounters{
		ReadCount:  pio.SyscR,
		WriteCount: pio.SyscW,
		ReadBytes:  pio.ReadBytes,
		WriteBytes: pio.WriteBytes,
	}, nil
}

var pageSize = uint64(os.Getpagesize())

// MemoryInfo is the basic memory usage of a process, in bytes.
type MemoryInfo struct {
	RSS uint64 // resident set size
	VMS uint64 // total program size
}

// MemoryInfoEx is the full breakdown from /proc/<pid>/statm, in bytes. Lib and Dirty are always 0 on Linux
// 2.6 and later.
type MemoryInfoEx struct {
	RSS    uint64
	VMS    uint64
	Shared uint64 // pages from shared mappings
	Text   uint64 // code
	Lib    uint64
	Data   uint64 // data + stack
	Dirty  uint64
}

func (p *Process) readStatm(n int) ([]uint64, error) {
	line, err := readFirstLine(p.path("statm"))
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) < n {
		return nil, malformedf("statm has %d fields; want at least %d", len(fields), n)
	}
	pages, err := parseUints(fields[:n])
	if err != nil {
		return nil, malformedf("statm: %s", err)
	}
	for i := range pages {
		pages[i] *= pageSize
	}
	return pages, nil
}

// MemoryInfo returns the process's resident and virtual memory sizes.
func (p *Process) MemoryInfo() (_ MemoryInfo, err error) {
	defer p.wrap(&err)
	v, err := p.readStatm(2)
	if err != nil {
		return MemoryInfo{}, err
	}
	// statm is size resident shared text lib data dt
	return MemoryInfo{RSS: v[1], VMS: v[0]}, nil
}

// MemoryInfoEx returns every figure from /proc/<pid>/statm.
func (p *Process) MemoryInfoEx() (_ MemoryInfoEx, err error) {
	defer p.wrap(&err)
	v, err := p.readStatm(7)
	if err != nil {
		return MemoryInfoEx{}, err
	}
	return MemoryInfoEx{
		RSS:    v[1],
		VMS:    v[0],
		Shared: v[2],
		Text:   v[3],
		Lib:    v[4],
		Data:   v[5],
		Dirty:  v[6],
	}, nil
}
