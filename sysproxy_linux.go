package psproc

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cespare/psproc/host"
)

// These wrap the syscalls that have no procfs equivalent. The kernel reports the same errors as for the
// pseudo-files (ESRCH for a missing process, EPERM when we lack privilege) so they go through the same
// translation.

// Nice returns the process's nice value (-20 to 19).
func (p *Process) Nice() (nice int, err error) {
	defer p.wrap(&err)
	// The raw syscall returns 20-nice so that it is never negative.
	prio, err := unix.Getpriority(unix.PRIO_PROCESS, p.Pid)
	if err != nil {
		return 0, err
	}
	return 20 - prio, nil
}

// SetNice changes the process's nice value.
func (p *Process) SetNice(nice int) (err error) {
	defer p.wrap(&err)
	return unix.Setpriority(unix.PRIO_PROCESS, p.Pid, nice)
}

// maxCPUs is the number of CPUs representable in a unix.CPUSet.
const maxCPUs = int(unsafe.Sizeof(unix.CPUSet{})) * 8

// Affinity returns the ids of the CPUs the process may run on, in ascending order.
func (p *Process) Affinity() (cpus []int, err error) {
	defer p.wrap(&err)
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(p.Pid, &set); err != nil {
		return nil, err
	}
	n := set.Count()
	for i := 0; i < maxCPUs && len(cpus) < n; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}

// SetAffinity restricts the process to the given CPUs.
func (p *Process) SetAffinity(cpus []int) (err error) {
	var set unix.CPUSet
	for _, cpu := range cpus {
		if cpu < 0 || cpu >= maxCPUs {
			return invalidArgf("invalid CPU #%d", cpu)
		}
		set.Set(cpu)
	}
	defer p.wrap(&err)
	err = unix.SchedSetaffinity(p.Pid, &set)
	if err == unix.EINVAL {
		// Find the offending id to give a better message.
		if ncpu, nerr := host.NumCPU(); nerr == nil {
			for _, cpu := range cpus {
				if cpu >= ncpu {
					return invalidArgf("invalid CPU #%d (choose between 0 and %d)", cpu, ncpu-1)
				}
			}
		}
	}
	return err
}

// An IOPrioClass is an I/O scheduling class; see ioprio_set(2).
type IOPrioClass int

const (
	IOPrioClassNone IOPrioClass = 0
	IOPrioClassRT   IOPrioClass = 1
	IOPrioClassBE   IOPrioClass = 2
	IOPrioClassIdle IOPrioClass = 3
)

const (
	ioprioWhoProcess = 1
	ioprioClassShift = 13
	ioprioPrioMask   = 1<<ioprioClassShift - 1
)

// IONice is an I/O scheduling class and priority within it (0 is highest, 7 lowest).
type IONice struct {
	Class IOPrioClass
	Value int
}

// IONice returns the process's I/O scheduling class and priority.
func (p *Process) IONice() (_ IONice, err error) {
	if !p.fs.Capabilities().IOPriority {
		return IONice{}, unsupportedf("ioprio_get is not available")
	}
	defer p.wrap(&err)
	r, _, errno := unix.Syscall(unix.SYS_IOPRIO_GET, ioprioWhoProcess, uintptr(p.Pid), 0)
	if errno != 0 {
		return IONice{}, errno
	}
	return IONice{
		Class: IOPrioClass(r >> ioprioClassShift),
		Value: int(r & ioprioPrioMask),
	}, nil
}

// SetIONice sets the process's I/O scheduling class and priority. The none and idle classes take no
// priority, so value must be 0 for them.
func (p *Process) SetIONice(class IOPrioClass, value int) (err error) {
	switch class {
	case IOPrioClassNone, IOPrioClassIdle:
		if value != 0 {
			return invalidArgf("can't specify an I/O priority value with class %d", class)
		}
	case IOPrioClassRT, IOPrioClassBE:
		if value < 0 || value > 7 {
			return invalidArgf("I/O priority value %d out of range [0, 7]", value)
		}
	default:
		return invalidArgf("invalid I/O priority class %d", class)
	}
	if !p.fs.Capabilities().IOPriority {
		return unsupportedf("ioprio_set is not available")
	}
	defer p.wrap(&err)
	ioprio := uintptr(class)<<ioprioClassShift | uintptr(value)
	if _, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, ioprioWhoProcess, uintptr(p.Pid), ioprio); errno != 0 {
		return errno
	}
	return nil
}

// Rlimit is a soft/hard resource limit pair. RlimInfinity means no limit.
type Rlimit struct {
	Soft uint64
	Hard uint64
}

// RlimInfinity is the value of an unlimited resource limit.
const RlimInfinity = ^uint64(0)

// Rlimit returns the process's limits for resource (one of the unix.RLIMIT_* constants).
func (p *Process) Rlimit(resource int) (_ Rlimit, err error) {
	if err := p.checkRlimit(); err != nil {
		return Rlimit{}, err
	}
	defer p.wrap(&err)
	var rl unix.Rlimit
	if err := unix.Prlimit(p.Pid, resource, nil, &rl); err != nil {
		return Rlimit{}, err
	}
	return Rlimit{Soft: rl.Cur, Hard: rl.Max}, nil
}

// SetRlimit sets the process's limits for resource.
func (p *Process) SetRlimit(resource int, limit Rlimit) (err error) {
	if err := p.checkRlimit(); err != nil {
		return err
	}
	if limit.Hard != RlimInfinity && limit.Soft > limit.Hard {
		return invalidArgf("soft limit %d exceeds hard limit %d", limit.Soft, limit.Hard)
	}
	defer p.wrap(&err)
	rl := unix.Rlimit{Cur: limit.Soft, Max: limit.Hard}
	return unix.Prlimit(p.Pid, resource, &rl, nil)
}

func (p *Process) checkRlimit() error {
	// prlimit treats pid 0 as the calling process.
	if p.Pid == 0 {
		return invalidArgf("can't use prlimit against pid 0")
	}
	if !p.fs.Capabilities().ResourceLimits {
		return unsupportedf("prlimit is not available")
	}
	return nil
}

func probeIOPriority() bool {
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_GET, ioprioWhoProcess, 0, 0)
	return errno != unix.ENOSYS
}

func probeResourceLimits() bool {
	var rl unix.Rlimit
	return unix.Prlimit(0, unix.RLIMIT_NOFILE, nil, &rl) != unix.ENOSYS
}

// deviceNumber returns the device number of the special file at path.
func deviceNumber(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Rdev), nil
}
