// Package host reports system-wide counters read from /proc and a few syscalls: memory, CPU times, boot
// time, load averages, and disk and network I/O.
//
// Every function reads the current state of the system and returns a fresh value; nothing is cached except
// the boot time and the set of CPU time fields the kernel reports, neither of which can change while the
// system is up.
package host

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// procRoot is where procfs is mounted. Most counters come from github.com/cespare/goproc, which always reads
// /proc; this is used for the files it doesn't cover, read directly or through github.com/prometheus/procfs.
var procRoot = "/proc"

func procPath(elem ...string) string {
	return filepath.Join(append([]string{procRoot}, elem...)...)
}

// scanLines calls fn for each line of the named file until it returns false.
func scanLines(name string, fn func(line string) bool) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !fn(scanner.Text()) {
			break
		}
	}
	return scanner.Err()
}

// firstLine returns the first line of the named file.
func firstLine(name string) (string, error) {
	var line string
	err := scanLines(name, func(l string) bool {
		line = l
		return false
	})
	return strings.TrimSpace(line), err
}
