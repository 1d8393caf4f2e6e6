package psproc

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/procfs"
)

// A Process is a handle on a pid. Nothing about the process is cached except its name (see Name), so every
// accessor re-reads the kernel's current state.
//
// A pid may be reused by the OS after the process it named exits. Accessors that read several files re-check
// that the process still exists when they finish, but a Process cannot tell whether the pid now refers to
// a different process; callers who care must compare CreateTime values.
type Process struct {
	Pid int

	fs *FS

	mu   sync.Mutex
	name string
}

// NewProcess returns a handle for pid using procfs at DefaultRoot.
func NewProcess(pid int) *Process {
	return defaultFS.Process(pid)
}

func (p *Process) path(elem ...string) string {
	return p.fs.path(append([]string{strconv.Itoa(p.Pid)}, elem...)...)
}

func (p *Process) cachedName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// checkAlive returns nil if the process's /proc directory is still present.
func (p *Process) checkAlive() error {
	_, err := os.Stat(p.path())
	return p.translate(err)
}

// IsRunning reports whether the process's /proc entry still exists.
func (p *Process) IsRunning() bool {
	return p.checkAlive() == nil
}

// Name returns the process name (the comm value, truncated by the kernel to 15 bytes). The name is remembered
// on p and used to annotate later errors.
func (p *Process) Name() (name string, err error) {
	defer p.wrap(&err)
	line, err := readFirstLine(p.path("stat"))
	if err != nil {
		return "", err
	}
	name, err = parseStatName(line)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
	return name, nil
}

// Exe returns the path of the process's executable. Kernel threads have no executable, in which case the
// result is empty.
func (p *Process) Exe() (exe string, err error) {
	defer p.wrap(&err)
	link := p.path("exe")
	exe, err = readlink(link)
	if err != nil {
		if isGone(err) {
			// The link exists for low-numbered system processes even though it can't be resolved.
			if _, lerr := os.Lstat(link); lerr == nil {
				return "", nil
			}
		}
		return "", err
	}
	exe = strings.Replace(exe, "\x00", "", -1)
	// The kernel appends " (deleted)" if the executable was unlinked. That's frequently bogus (the file was
	// replaced), so only strip it when nothing exists at the bare path.
	if trimmed := strings.TrimSuffix(exe, " (deleted)"); trimmed != exe {
		if _, err := os.Stat(exe); err != nil {
			exe = trimmed
		}
	}
	return exe, nil
}

// Cmdline returns the process's arguments. It is empty for zombies and kernel threads. Empty arguments in
// the middle of the list are kept.
func (p *Process) Cmdline() (args []string, err error) {
	defer p.wrap(&err)
	proc, err := p.procfsProc()
	if err != nil {
		return nil, err
	}
	return proc.CmdLine()
}

// Cwd returns the process's working directory.
func (p *Process) Cwd() (cwd string, err error) {
	defer p.wrap(&err)
	cwd, err = readlink(p.path("cwd"))
	if err != nil {
		return "", err
	}
	return strings.Replace(cwd, "\x00", "", -1), nil
}

// NumFDs returns the number of file descriptors the process has open.
func (p *Process) NumFDs() (n int, err error) {
	defer p.wrap(&err)
	proc, err := p.procfsProc()
	if err != nil {
		return 0, err
	}
	return proc.FileDescriptorsLen()
}

// procfsProc returns the procfs view of p. It fails with ENOENT if the process is gone.
func (p *Process) procfsProc() (procfs.Proc, error) {
	if p.fs.pfsErr != nil {
		return procfs.Proc{}, p.fs.pfsErr
	}
	return p.fs.pfs.Proc(p.Pid)
}
