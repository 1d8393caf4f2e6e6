/*
Package psproc reads information about running processes from the Linux proc filesystem.

A Process is a handle on a pid. Its accessors read the relevant files under /proc/<pid> (or make a
syscall, for scheduling and resource limits) every time they are called:

	p := psproc.NewProcess(pid)
	name, err := p.Name()
	conns, err := p.Connections("tcp")

Failures are reported in terms of what happened to the process rather than which file could not be read.
An error matching ErrProcessGone (with errors.Is) means the process exited; ErrAccessDenied means the
caller lacks the privileges to inspect it. Both arrive as a *ProcessError carrying the pid.

To read from procfs mounted somewhere other than /proc (a container's, or a test fixture), use NewFS.

System-wide counters (memory, CPU times, disks and so on) are in the host subpackage.
*/
package psproc
