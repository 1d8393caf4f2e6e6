package psproc

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// AnonymousPath is the Path of a memory region that doesn't map a file.
const AnonymousPath = "[anon]"

// A MemoryRegion summarizes one mapping from /proc/<pid>/smaps. Sizes are in bytes.
type MemoryRegion struct {
	Addr  string // e.g. 00400000-0040b000
	Perms string // e.g. r-xp
	Path  string // mapped file, a pseudo-path such as [heap], or AnonymousPath

	RSS          uint64
	Size         uint64
	PSS          uint64
	SharedClean  uint64
	SharedDirty  uint64
	PrivateClean uint64
	PrivateDirty uint64
	Referenced   uint64
	Anonymous    uint64
	Swap         uint64
}

func (r *MemoryRegion) add(other *MemoryRegion) {
	r.RSS += other.RSS
	r.Size += other.Size
	r.PSS += other.PSS
	r.SharedClean += other.SharedClean
	r.SharedDirty += other.SharedDirty
	r.PrivateClean += other.PrivateClean
	r.PrivateDirty += other.PrivateDirty
	r.Referenced += other.Referenced
	r.Anonymous += other.Anonymous
	r.Swap += other.Swap
}

// A MemoryMapScanner reads memory regions one at a time, in the order the kernel lists them. Use it like a
// bufio.Scanner:
//
//	s, err := p.MemoryMaps()
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	for s.Scan() {
//		r := s.Region()
//		...
//	}
//	if err := s.Err(); err != nil {
//		return err
//	}
//
// A MemoryMapScanner cannot be restarted; call MemoryMaps again for a fresh read.
type MemoryMapScanner struct {
	p      *Process
	rc     io.Closer
	lines  *bufio.Scanner
	header string            // header line of the block being read
	stats  map[string]uint64 // "Rss:" -> bytes
	region MemoryRegion
	done   bool
	err    error
}

func newMemoryMapScanner(p *Process, rc io.ReadCloser) *MemoryMapScanner {
	return &MemoryMapScanner{
		p:     p,
		rc:    rc,
		lines: bufio.NewScanner(rc),
		stats: make(map[string]uint64),
	}
}

// Scan advances to the next region. It returns false at the end of the file or on error; check Err to tell
// these apart. The underlying file is closed as soon as Scan returns false.
func (s *MemoryMapScanner) Scan() bool {
	if s.done {
		return false
	}
	for s.lines.Scan() {
		line := s.lines.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !strings.HasSuffix(fields[0], ":") {
			// A header line starts the next block.
			prev := s.header
			s.header = line
			if prev == "" {
				continue
			}
			s.region = buildRegion(prev, s.stats)
			s.stats = make(map[string]uint64)
			return true
		}
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			// Not a size (e.g. VmFlags: rd wr mr mw me ac).
			continue
		}
		s.stats[fields[0]] = v * 1024
	}
	s.finish(s.lines.Err())
	if s.err != nil || s.header == "" {
		return false
	}
	s.region = buildRegion(s.header, s.stats)
	s.header = ""
	return true
}

func (s *MemoryMapScanner) finish(err error) {
	s.done = true
	if err != nil {
		s.err = s.p.translate(err)
	}
	s.Close()
}

// Region returns the region read by the most recent call to Scan.
func (s *MemoryMapScanner) Region() MemoryRegion { return s.region }

// Err returns the first error encountered while scanning.
func (s *MemoryMapScanner) Err() error { return s.err }

// Close releases the underlying file. It is safe to call more than once.
func (s *MemoryMapScanner) Close() error {
	s.done = true
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}

// buildRegion turns a header line such as
//
//	00400000-0040b000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
//
// and the accumulated block stats into a MemoryRegion. Stats missing from the block are 0.
func buildRegion(header string, stats map[string]uint64) MemoryRegion {
	fields := splitN(header, 6)
	r := MemoryRegion{
		Addr:  fields[0],
		Perms: fields[1],
		Path:  strings.TrimSpace(fields[5]),

		RSS:          stats["Rss:"],
		Size:         stats["Size:"],
		PSS:          stats["Pss:"],
		SharedClean:  stats["Shared_Clean:"],
		SharedDirty:  stats["Shared_Dirty:"],
		PrivateClean: stats["Private_Clean:"],
		PrivateDirty: stats["Private_Dirty:"],
		Referenced:   stats["Referenced:"],
		Anonymous:    stats["Anonymous:"],
		Swap:         stats["Swap:"],
	}
	if r.Path == "" {
		r.Path = AnonymousPath
	}
	return r
}

// splitN splits s on runs of whitespace into exactly n fields. The last field holds the rest of the line (so
// a path containing spaces survives); missing fields are empty.
func splitN(s string, n int) []string {
	result := make([]string, n)
	for i := 0; i < n-1; i++ {
		s = strings.TrimLeft(s, " \t")
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			result[i] = s
			return result
		}
		result[i] = s[:j]
		s = s[j:]
	}
	result[n-1] = strings.TrimLeft(s, " \t")
	return result
}

// MemoryMaps returns a scanner over the process's mapped memory regions. If the kernel doesn't provide
// /proc/<pid>/smaps (before 2.6.14, or without CONFIG_MMU) the error is ErrUnsupported.
func (p *Process) MemoryMaps() (_ *MemoryMapScanner, err error) {
	if !p.fs.Capabilities().MemoryMaps {
		return nil, unsupportedf("couldn't find %s; kernel < 2.6.14 or CONFIG_MMU is not enabled", p.path("smaps"))
	}
	defer p.wrap(&err)
	f, err := openFile(p.path("smaps"))
	if err != nil {
		return nil, err
	}
	return newMemoryMapScanner(p, f), nil
}

// MemoryMapsGrouped returns one region per distinct path, summing the sizes of every mapping of that path.
// The result is in order of each path's first appearance; Addr and Perms are those of the first mapping.
func (p *Process) MemoryMapsGrouped() ([]MemoryRegion, error) {
	s, err := p.MemoryMaps()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	var grouped []MemoryRegion
	index := make(map[string]int)
	for s.Scan() {
		r := s.Region()
		if i, ok := index[r.Path]; ok {
			grouped[i].add(&r)
			continue
		}
		index[r.Path] = len(grouped)
		grouped = append(grouped, r)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return grouped, nil
}
