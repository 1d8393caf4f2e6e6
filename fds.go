package psproc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	socketPrefix = "socket:["
	socketSuffix = "]"
)

// socketInodes maps the inode of each socket the process has open to its descriptor number. A descriptor
// that is closed between listing the fd directory and reading its link is skipped: the result is a
// best-effort snapshot, not an atomic one.
func (p *Process) socketInodes() (map[string]int, error) {
	dir := p.path("fd")
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	inodes := make(map[string]int)
	for _, entry := range entries {
		target, err := readlink(filepath.Join(dir, entry.Name()))
		if err != nil {
			p.fs.log.Debugf("pid %d: skipping fd %s: %s", p.Pid, entry.Name(), err)
			continue
		}
		if !strings.HasPrefix(target, socketPrefix) || !strings.HasSuffix(target, socketSuffix) {
			continue
		}
		fd, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		inode := target[len(socketPrefix) : len(target)-len(socketSuffix)]
		inodes[inode] = fd
	}
	return inodes, nil
}

// An OpenFile is a regular file held open by a process.
type OpenFile struct {
	Path string
	FD   int
}

// OpenFiles returns the regular files the process has open. Descriptors for sockets, pipes, devices and
// so on are omitted, as are files whose path can't be determined.
func (p *Process) OpenFiles() (files []OpenFile, err error) {
	defer p.wrap(&err)
	dir := p.path("fd")
	entries, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	vanished := false
	for _, entry := range entries {
		fd, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		target, err := readlink(filepath.Join(dir, entry.Name()))
		if err != nil {
			if isGone(err) {
				vanished = true
				continue
			}
			return nil, err
		}
		// Non-absolute targets (pipe:[123], anon_inode:...) can't be regular files.
		if !strings.HasPrefix(target, "/") {
			continue
		}
		if fi, err := os.Stat(target); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, OpenFile{Path: target, FD: fd})
	}
	if vanished {
		if err := p.checkAlive(); err != nil {
			return nil, err
		}
	}
	return files, nil
}
