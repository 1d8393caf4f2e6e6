package psproc

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/psproc/host"
)

// clockTicks is USER_HZ, the unit of the time fields in /proc/<pid>/stat. It comes from sysconf(_SC_CLK_TCK)
// but is fixed at 100 on every Linux architecture, so it is hard coded rather than pulling in cgo.
const clockTicks = 100

// Positions in /proc/<pid>/stat counting from the field after the name (so the state is 0). These are the
// stat(5) field numbers minus 3. Newer kernels append fields, so only a minimum length is enforced.
const (
	statState      = 0
	statPPid       = 1
	statTTY        = 4
	statUTime      = 11
	statSTime      = 12
	statNice       = 16
	statNumThreads = 17
	statStartTime  = 19

	statMinFields = statStartTime + 1
)

// procStat is the interesting part of a /proc/<pid>/stat or /proc/<pid>/task/<tid>/stat record.
type procStat struct {
	Name       string
	State      string
	PPid       int
	TTY        uint64
	UTime      uint64 // clock ticks
	STime      uint64 // clock ticks
	Nice       int
	NumThreads int
	StartTime  uint64 // clock ticks since boot
}

// parseStatName extracts the name from a stat record. It stops at the first ')' after the '(' so it never
// looks past the name field.
func parseStatName(line string) (string, error) {
	start := strings.IndexByte(line, '(')
	if start < 0 {
		return "", malformedf("no name in stat record %q", line)
	}
	end := strings.IndexByte(line[start:], ')')
	if end < 0 {
		return "", malformedf("no name in stat record %q", line)
	}
	return line[start+1 : start+end], nil
}

// parseStat reads the positional fields of a stat record. The name can contain anything, including spaces
// and parentheses, so the fields are located relative to the last ')' in the line.
func parseStat(line string) (*procStat, error) {
	start := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if start < 0 || end < start {
		return nil, malformedf("no name in stat record %q", line)
	}
	fields := strings.Fields(line[end+1:])
	if len(fields) < statMinFields {
		return nil, malformedf("stat record has %d fields after the name; want at least %d",
			len(fields), statMinFields)
	}
	st := &procStat{
		Name:  line[start+1 : end],
		State: fields[statState],
	}
	var err error
	if st.PPid, err = strconv.Atoi(fields[statPPid]); err != nil {
		return nil, malformedf("bad ppid in stat record: %s", err)
	}
	// tty_nr is printed as a signed int.
	tty, err := strconv.ParseInt(fields[statTTY], 10, 64)
	if err != nil {
		return nil, malformedf("bad tty_nr in stat record: %s", err)
	}
	st.TTY = uint64(tty)
	if st.Nice, err = strconv.Atoi(fields[statNice]); err != nil {
		return nil, malformedf("bad nice in stat record: %s", err)
	}
	if st.NumThreads, err = strconv.Atoi(fields[statNumThreads]); err != nil {
		return nil, malformedf("bad num_threads in stat record: %s", err)
	}
	for _, f := range []struct {
		dst *uint64
		i   int
	}{
		{&st.UTime, statUTime},
		{&st.STime, statSTime},
		{&st.StartTime, statStartTime},
	} {
		if *f.dst, err = strconv.ParseUint(fields[f.i], 10, 64); err != nil {
			return nil, malformedf("bad field %d in stat record: %s", f.i, err)
		}
	}
	return st, nil
}

func readStat(name string) (*procStat, error) {
	line, err := readFirstLine(name)
	if err != nil {
		return nil, err
	}
	return parseStat(line)
}

func ticksToSeconds(ticks uint64) float64 { return float64(ticks) / clockTicks }

// CPUTimes is the CPU time used by a process or thread, in seconds.
type CPUTimes struct {
	User   float64
	System float64
}

// CPUTimes returns the user and system CPU time consumed by the process.
func (p *Process) CPUTimes() (_ CPUTimes, err error) {
	defer p.wrap(&err)
	st, err := readStat(p.path("stat"))
	if err != nil {
		return CPUTimes{}, err
	}
	return CPUTimes{User: ticksToSeconds(st.UTime), System: ticksToSeconds(st.STime)}, nil
}

// CreateTime returns the time the process started.
func (p *Process) CreateTime() (_ time.Time, err error) {
	defer p.wrap(&err)
	st, err := readStat(p.path("stat"))
	if err != nil {
		return time.Time{}, err
	}
	boot, err := host.BootTime()
	if err != nil {
		return time.Time{}, err
	}
	since := time.Duration(st.StartTime) * (time.Second / clockTicks)
	return boot.Add(since), nil
}

// Terminal returns the path of the process's controlling terminal, or the empty string if it has none.
func (p *Process) Terminal() (tty string, err error) {
	defer p.wrap(&err)
	st, err := readStat(p.path("stat"))
	if err != nil {
		return "", err
	}
	if st.TTY == 0 {
		return "", nil
	}
	terminals, err := terminalMap(p.fs.devRoot)
	if err != nil {
		return "", err
	}
	return terminals[st.TTY], nil
}

// terminalMap maps device numbers to terminal device paths under devRoot.
func terminalMap(devRoot string) (map[uint64]string, error) {
	var paths []string
	for _, pattern := range []string{"tty*", filepath.Join("pts", "*")} {
		matches, err := filepath.Glob(filepath.Join(devRoot, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	m := make(map[uint64]string, len(paths))
	for _, path := range paths {
		rdev, err := deviceNumber(path)
		if err != nil {
			continue // gone, or not a device
		}
		m[rdev] = path
	}
	return m, nil
}
