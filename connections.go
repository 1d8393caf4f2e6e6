package psproc

import (
	"sort"
	"strings"
)

// A ConnStatus is the state of a TCP connection. UDP and UNIX sockets have ConnNone.
type ConnStatus string

const (
	ConnEstablished ConnStatus = "ESTABLISHED"
	ConnSynSent     ConnStatus = "SYN_SENT"
	ConnSynRecv     ConnStatus = "SYN_RECV"
	ConnFinWait1    ConnStatus = "FIN_WAIT1"
	ConnFinWait2    ConnStatus = "FIN_WAIT2"
	ConnTimeWait    ConnStatus = "TIME_WAIT"
	ConnClose       ConnStatus = "CLOSE"
	ConnCloseWait   ConnStatus = "CLOSE_WAIT"
	ConnLastAck     ConnStatus = "LAST_ACK"
	ConnListen      ConnStatus = "LISTEN"
	ConnClosing     ConnStatus = "CLOSING"
	ConnNone        ConnStatus = "NONE"
)

// From include/net/tcp_states.h.
var tcpStatuses = map[string]ConnStatus{
	"01": ConnEstablished,
	"02": ConnSynSent,
	"03": ConnSynRecv,
	"04": ConnFinWait1,
	"05": ConnFinWait2,
	"06": ConnTimeWait,
	"07": ConnClose,
	"08": ConnCloseWait,
	"09": ConnLastAck,
	"0A": ConnListen,
	"0B": ConnClosing,
}

// A Connection is a socket held open by a process.
type Connection struct {
	FD     int
	Family Family
	Type   SocketType
	Local  *Addr // for UNIX sockets, only Path is set
	Remote *Addr // nil if there is no remote endpoint (always nil for UNIX sockets)
	Status ConnStatus
}

// A connTable is one kernel socket table and the kind of socket it lists.
type connTable struct {
	name   string
	family Family
	typ    SocketType // 0 for unix: the type is per row
}

var (
	connTCP4 = connTable{"tcp", AF_INET, SOCK_STREAM}
	connTCP6 = connTable{"tcp6", AF_INET6, SOCK_STREAM}
	connUDP4 = connTable{"udp", AF_INET, SOCK_DGRAM}
	connUDP6 = connTable{"udp6", AF_INET6, SOCK_DGRAM}
	connUnix = connTable{"unix", AF_UNIX, 0}
)

// connKinds maps each kind accepted by Connections to the tables it covers, in the order they are read.
var connKinds = map[string][]connTable{
	"all":   {connTCP4, connTCP6, connUDP4, connUDP6, connUnix},
	"tcp":   {connTCP4, connTCP6},
	"tcp4":  {connTCP4},
	"tcp6":  {connTCP6},
	"udp":   {connUDP4, connUDP6},
	"udp4":  {connUDP4},
	"udp6":  {connUDP6},
	"unix":  {connUnix},
	"inet":  {connTCP4, connTCP6, connUDP4, connUDP6},
	"inet4": {connTCP4, connUDP4},
	"inet6": {connTCP6, connUDP6},
}

// ConnectionKinds returns the kinds accepted by Connections, sorted.
func ConnectionKinds() []string {
	kinds := make([]string, 0, len(connKinds))
	for k := range connKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Connections returns the sockets the process has open, restricted by kind:
//
//	inet   IPv4 and IPv6
//	inet4  IPv4
//	inet6  IPv6
//	tcp    TCP
//	tcp4   TCP over IPv4
//	tcp6   TCP over IPv6
//	udp    UDP
//	udp4   UDP over IPv4
//	udp6   UDP over IPv6
//	unix   UNIX domain sockets
//	all    all of the above
//
// Any other kind is an ErrInvalidArgument error. Connections are listed table by table in the order above
// (TCP before UDP, IPv4 before IPv6). The kernel tables are read one after another without any snapshot, so
// a busy process can open or close sockets while they are read; if the process exits before the read
// finishes, the result is ErrProcessGone rather than a partial list.
//
// For UNIX sockets only the local bound path is available; the peer can't be determined from procfs.
func (p *Process) Connections(kind string) (conns []Connection, err error) {
	tables, ok := connKinds[kind]
	if !ok {
		return nil, invalidArgf("invalid connection kind %q; choose between %s",
			kind, strings.Join(ConnectionKinds(), ", "))
	}
	defer p.wrap(&err)

	inodes, err := p.socketInodes()
	if err != nil {
		return nil, err
	}
	if len(inodes) == 0 {
		return []Connection{}, nil
	}
	conns = []Connection{}
	for _, t := range tables {
		found, err := p.fs.tableConnections(t, inodes)
		if err != nil {
			return nil, err
		}
		conns = append(conns, found...)
	}
	if err := p.checkAlive(); err != nil {
		return nil, err
	}
	return conns, nil
}

// tableConnections returns the rows of t whose inodes belong to the given inode -> fd map.
func (fs *FS) tableConnections(t connTable, inodes map[string]int) ([]Connection, error) {
	var conns []Connection
	if t.family == AF_UNIX {
		err := fs.scanUnixTable(func(row *unixRow) error {
			fd, ok := inodes[row.Inode]
			if !ok {
				return nil
			}
			conns = append(conns, Connection{
				FD:     fd,
				Family: AF_UNIX,
				Type:   row.Type,
				Local:  &Addr{Path: row.Path},
				Status: ConnNone,
			})
			return nil
		})
		return conns, err
	}
	err := fs.scanInetTable(t.name, func(row *inetRow) error {
		fd, ok := inodes[row.Inode]
		if !ok {
			return nil
		}
		local, err := decodeAddress(row.Local, t.family, hostByteOrder)
		if err != nil {
			return err
		}
		remote, err := decodeAddress(row.Remote, t.family, hostByteOrder)
		if err != nil {
			return err
		}
		status := ConnNone
		if t.typ == SOCK_STREAM {
			var ok bool
			if status, ok = tcpStatuses[row.State]; !ok {
				return malformedf("unknown TCP state %q in %s", row.State, t.name)
			}
		}
		conns = append(conns, Connection{
			FD:     fd,
			Family: t.family,
			Type:   t.typ,
			Local:  local,
			Remote: remote,
			Status: status,
		})
		return nil
	})
	return conns, err
}
