package host

import (
	"strings"
	"sync"
	"time"

	proc "github.com/cespare/goproc"
	"github.com/pkg/errors"
)

// clockTicks is USER_HZ (see the note in the psproc package).
const clockTicks = 100

// cpuFields are the CPU time columns of /proc/stat, in order. Only the first seven are present on every
// kernel: steal arrived in 2.6.11, guest in 2.6.24 and guest_nice in 3.2.
var cpuFields = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal", "guest", "guest_nice"}

const minCPUFields = 7

var cpuSchema struct {
	once   sync.Once
	fields []string
	err    error
}

// CPUFields returns the names of the CPU time fields this kernel reports, in /proc/stat order. It is worked
// out once from the number of columns of the first line of /proc/stat.
func CPUFields() ([]string, error) {
	cpuSchema.once.Do(func() {
		line, err := firstLine(procPath("stat"))
		if err != nil {
			cpuSchema.err = errors.Wrap(err, "reading CPU field schema")
			return
		}
		cpuSchema.fields, cpuSchema.err = schemaForLine(line)
	})
	return cpuSchema.fields, cpuSchema.err
}

func schemaForLine(line string) ([]string, error) {
	values := strings.Fields(line)
	if len(values) == 0 || values[0] != "cpu" {
		return nil, errors.Errorf("unexpected first line of /proc/stat: %q", line)
	}
	n := len(values) - 1
	if n < minCPUFields {
		return nil, errors.Errorf("/proc/stat has %d CPU time fields; want at least %d", n, minCPUFields)
	}
	if n > len(cpuFields) {
		n = len(cpuFields)
	}
	return cpuFields[:n], nil
}

// CPUTimesStat holds cumulative CPU times in seconds. Fields lists the members that this kernel reports; the
// others are always 0.
type CPUTimesStat struct {
	Fields []string

	User      float64
	Nice      float64
	System    float64
	Idle      float64
	IOWait    float64
	IRQ       float64
	SoftIRQ   float64
	Steal     float64
	Guest     float64
	GuestNice float64
}

// Get returns the value of the named field (one of the names in Fields).
func (t *CPUTimesStat) Get(field string) (float64, bool) {
	for _, f := range t.Fields {
		if f == field {
			return *t.fieldPtr(field), true
		}
	}
	return 0, false
}

func (t *CPUTimesStat) fieldPtr(field string) *float64 {
	switch field {
	case "user":
		return &t.User
	case "nice":
		return &t.Nice
	case "system":
		return &t.System
	case "idle":
		return &t.Idle
	case "iowait":
		return &t.IOWait
	case "irq":
		return &t.IRQ
	case "softirq":
		return &t.SoftIRQ
	case "steal":
		return &t.Steal
	case "guest":
		return &t.Guest
	case "guest_nice":
		return &t.GuestNice
	}
	panic("unknown CPU time field " + field)
}

func newCPUTimes(fields []string, info *proc.CPUStatInfo) *CPUTimesStat {
	raw := []uint64{
		info.User, info.Nice, info.System, info.Idle, info.Iowait, info.Irq,
		info.Softirq, info.Steal, info.Guest, info.Guest_nice,
	}
	t := &CPUTimesStat{Fields: fields}
	for i, name := range fields {
		*t.fieldPtr(name) = float64(raw[i]) / clockTicks
	}
	return t
}

// CPUTimes returns system-wide CPU times.
func CPUTimes() (*CPUTimesStat, error) {
	fields, err := CPUFields()
	if err != nil {
		return nil, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "reading /proc/stat")
	}
	if stat.Cpu == nil {
		return nil, errors.New("no cpu line in /proc/stat")
	}
	return newCPUTimes(fields, stat.Cpu), nil
}

// PerCPUTimes returns the CPU times of each CPU, indexed by CPU number.
func PerCPUTimes() ([]*CPUTimesStat, error) {
	fields, err := CPUFields()
	if err != nil {
		return nil, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "reading /proc/stat")
	}
	times := make([]*CPUTimesStat, len(stat.Cpus))
	for i, info := range stat.Cpus {
		if info == nil {
			// Offline CPUs have no line.
			times[i] = &CPUTimesStat{Fields: fields}
			continue
		}
		times[i] = newCPUTimes(fields, info)
	}
	return times, nil
}

// NumCPU returns the number of CPUs listed in /proc/stat. Unlike runtime.NumCPU, this isn't affected by
// the affinity mask (e.g. isolcpus) of the current process.
func NumCPU() (int, error) {
	stat, err := proc.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "reading /proc/stat")
	}
	return len(stat.Cpus), nil
}

var bootTime struct {
	mu sync.Mutex
	t  time.Time
}

// BootTime returns the time the system booted. The value is read from /proc/stat the first time it is
// needed and reused afterwards; a failed read is not remembered.
func BootTime() (time.Time, error) {
	bootTime.mu.Lock()
	defer bootTime.mu.Unlock()
	if !bootTime.t.IsZero() {
		return bootTime.t, nil
	}
	stat, err := proc.Stat()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "reading /proc/stat")
	}
	if stat.Btime.Unix() == 0 {
		return time.Time{}, errors.New("no btime line in /proc/stat")
	}
	bootTime.t = stat.Btime
	return bootTime.t, nil
}
