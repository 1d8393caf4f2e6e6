package psproc

import (
	"sort"
	"strconv"
)

// A Thread is one task of a process with its CPU times in seconds.
type Thread struct {
	ID     int
	User   float64
	System float64
}

// Threads lists the process's threads in order of thread id. Threads that exit while the list is being
// built are left out.
func (p *Process) Threads() (threads []Thread, err error) {
	defer p.wrap(&err)
	entries, err := readDir(p.path("task"))
	if err != nil {
		return nil, err
	}
	var tids []int
	for _, entry := range entries {
		tid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}
	sort.Ints(tids)

	vanished := false
	for _, tid := range tids {
		st, err := readStat(p.path("task", strconv.Itoa(tid), "stat"))
		if err != nil {
			if isGone(err) {
				p.fs.log.Debugf("pid %d: thread %d went away", p.Pid, tid)
				vanished = true
				continue
			}
			return nil, err
		}
		threads = append(threads, Thread{
			ID:     tid,
			User:   ticksToSeconds(st.UTime),
			System: ticksToSeconds(st.STime),
		})
	}
	if vanished {
		if err := p.checkAlive(); err != nil {
			return nil, err
		}
	}
	return threads, nil
}
