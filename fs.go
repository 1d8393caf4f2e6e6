package psproc

import (
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/cespare/psproc/internal/llog"
)

const (
	// DefaultRoot is where procfs is normally mounted.
	DefaultRoot = "/proc"
	// DefaultDevRoot is where device nodes (used to resolve controlling terminals) live.
	DefaultDevRoot = "/dev"
)

// An FS is a procfs mount point. The zero value is not usable; use NewFS.
type FS struct {
	root    string
	devRoot string
	log     *llog.Logger

	// pfs serves the per-process files that need no special handling. pfsErr is set if root could not be
	// opened as a procfs mount.
	pfs    procfs.FS
	pfsErr error

	capsOnce sync.Once
	caps     Capabilities
}

// An Option configures an FS.
type Option func(*FS)

// WithDevRoot sets the directory searched for terminal device nodes.
func WithDevRoot(dir string) Option {
	return func(fs *FS) { fs.devRoot = dir }
}

// WithLogger sends debug output (skipped descriptors, vanished threads, and so on) to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(fs *FS) { fs.log = llog.NewLogger(logger, true) }
}

// NewFS returns an FS for procfs mounted at root.
func NewFS(root string, opts ...Option) *FS {
	fs := &FS{
		root:    root,
		devRoot: DefaultDevRoot,
		log:     llog.Discard(),
	}
	for _, opt := range opts {
		opt(fs)
	}
	pfs, err := procfs.NewFS(root)
	if err != nil {
		fs.pfsErr = errors.Wrapf(err, "opening procfs at %s", root)
	} else {
		fs.pfs = pfs
	}
	return fs
}

var defaultFS = NewFS(DefaultRoot)

// Root returns the directory fs reads from.
func (fs *FS) Root() string { return fs.root }

func (fs *FS) path(elem ...string) string {
	return filepath.Join(append([]string{fs.root}, elem...)...)
}

// Process returns a handle for pid. No files are read until an accessor is called.
func (fs *FS) Process(pid int) *Process {
	return &Process{Pid: pid, fs: fs}
}

// Pids lists the pids of the processes currently visible in fs, in ascending order.
func (fs *FS) Pids() ([]int, error) {
	entries, err := readDir(fs.root)
	if err != nil {
		return nil, err
	}
	var pids []int
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || !entry.IsDir() {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

// PidExists reports whether a process with the given pid exists, using signal 0. This bypasses procfs so it
// also works when /proc is mounted with hidepid.
func PidExists(pid int) bool {
	if pid == 0 {
		// kill(0, 0) signals our own process group; pid 0 is the kernel's idle task.
		return true
	}
	if pid < 0 {
		return false
	}
	switch err := unix.Kill(pid, 0); err {
	case nil, unix.EPERM:
		return true
	default:
		return false
	}
}

// Capabilities describe optional kernel features.
type Capabilities struct {
	IOCounters     bool // /proc/<pid>/io
	MemoryMaps     bool // /proc/<pid>/smaps
	IOPriority     bool // ioprio_get/ioprio_set
	ResourceLimits bool // prlimit
}

// Capabilities reports the optional kernel features available through fs. They are resolved the first time
// this is called (directly or by an accessor that depends on one) and never again.
func (fs *FS) Capabilities() Capabilities {
	fs.capsOnce.Do(func() {
		fs.caps = Capabilities{
			IOCounters:     fileExists(fs.path("self", "io")),
			MemoryMaps:     fileExists(fs.path("self", "smaps")),
			IOPriority:     probeIOPriority(),
			ResourceLimits: probeResourceLimits(),
		}
		fs.log.Debugf("resolved capabilities for %s: %+v", fs.root, fs.caps)
	})
	return fs.caps
}

func fileExists(name string) bool {
	f, err := openFile(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
