package psproc

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// A Family is a socket address family.
type Family int

const (
	AF_UNIX  Family = unix.AF_UNIX
	AF_INET  Family = unix.AF_INET
	AF_INET6 Family = unix.AF_INET6
)

func (f Family) String() string {
	switch f {
	case AF_UNIX:
		return "AF_UNIX"
	case AF_INET:
		return "AF_INET"
	case AF_INET6:
		return "AF_INET6"
	}
	return "Family(" + strconv.Itoa(int(f)) + ")"
}

// A SocketType is a socket type such as SOCK_STREAM.
type SocketType int

const (
	SOCK_STREAM    SocketType = unix.SOCK_STREAM
	SOCK_DGRAM     SocketType = unix.SOCK_DGRAM
	SOCK_SEQPACKET SocketType = unix.SOCK_SEQPACKET
)

func (t SocketType) String() string {
	switch t {
	case SOCK_STREAM:
		return "SOCK_STREAM"
	case SOCK_DGRAM:
		return "SOCK_DGRAM"
	case SOCK_SEQPACKET:
		return "SOCK_SEQPACKET"
	}
	return "SocketType(" + strconv.Itoa(int(t)) + ")"
}

// inetRow is a row of /proc/net/{tcp,udp}{,6}:
//
//	sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
//	 0: 0100007F:0CEA 00000000:0000 0A 00000000:00000000 00:00000000 00000000   107        0 17036 ...
type inetRow struct {
	Local  string
	Remote string
	State  string
	Inode  string
}

const (
	inetLocal  = 1
	inetRemote = 2
	inetState  = 3
	inetInode  = 9

	inetMinFields = inetInode + 1
)

// unixRow is a row of /proc/net/unix:
//
//	Num       RefCount Protocol Flags    Type St Inode Path
//	0000000000000000: 00000002 00000000 00010000 0001 01 20787 /run/systemd/notify
type unixRow struct {
	Type  SocketType
	State string
	Inode string
	Path  string // empty for unbound sockets
}

const (
	unixType  = 4
	unixState = 5
	unixInode = 6
	unixPath  = 7

	unixMinFields = unixInode + 1
)

// scanInetTable calls fn for each row of the named inet table (tcp, tcp6, udp, udp6). A missing IPv6 table
// means the kernel was built without IPv6, which is the same as an empty table.
func (fs *FS) scanInetTable(table string, fn func(*inetRow) error) error {
	name := fs.path("net", table)
	err := scanTable(name, func(fields []string) error {
		if len(fields) < inetMinFields {
			return malformedf("%s: row has %d fields; want at least %d", name, len(fields), inetMinFields)
		}
		return fn(&inetRow{
			Local:  fields[inetLocal],
			Remote: fields[inetRemote],
			State:  fields[inetState],
			Inode:  fields[inetInode],
		})
	})
	if err != nil && isGone(err) && strings.HasSuffix(table, "6") {
		fs.log.Debugf("%s is missing; assuming no IPv6 support", name)
		return nil
	}
	return err
}

// scanUnixTable calls fn for each row of /proc/net/unix. The path is the rest of the row after the inode,
// so bound paths containing spaces are kept whole.
func (fs *FS) scanUnixTable(fn func(*unixRow) error) error {
	name := fs.path("net", "unix")
	return scanTableLines(name, func(line string) error {
		fields := splitN(line, unixPath+1)
		if fields[0] == "" {
			return nil
		}
		if fields[unixInode] == "" {
			n := len(strings.Fields(line))
			return malformedf("%s: row has %d fields; want at least %d", name, n, unixMinFields)
		}
		typ, err := strconv.ParseUint(fields[unixType], 16, 32)
		if err != nil {
			return malformedf("%s: bad socket type %q", name, fields[unixType])
		}
		return fn(&unixRow{
			Type:  SocketType(typ),
			State: fields[unixState],
			Inode: fields[unixInode],
			Path:  fields[unixPath],
		})
	})
}
