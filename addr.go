package psproc

import (
	"encoding/binary"
	"encoding/hex"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"
)

// hostByteOrder is the order in which the kernel writes the 32-bit words of addresses in /proc/net/*.
var hostByteOrder binary.ByteOrder = binary.LittleEndian

func init() {
	if cpu.IsBigEndian {
		hostByteOrder = binary.BigEndian
	}
}

// An Addr is a socket endpoint. Internet sockets have an IP and Port; UNIX sockets have only a Path (which
// is empty for unbound sockets).
type Addr struct {
	IP   string
	Port int
	Path string
}

func (a *Addr) String() string {
	if a == nil {
		return ""
	}
	if a.IP == "" {
		return a.Path
	}
	return netip.AddrPortFrom(netip.MustParseAddr(a.IP), uint16(a.Port)).String()
}

// decodeAddress decodes an endpoint as printed in /proc/net/{tcp,udp}{,6}, for instance
//
//	0500000A:0016                         -> 10.0.0.5:22
//	0000000000000000FFFF00000100007F:9E49 -> [::ffff:127.0.0.1]:40521
//
// The address is a sequence of 32-bit words printed in host byte order; the port is always big-endian. A
// zero port means there is no endpoint (the remote side of a listening socket, say), which is returned as
// nil.
func decodeAddress(token string, family Family, order binary.ByteOrder) (*Addr, error) {
	i := strings.LastIndexByte(token, ':')
	if i < 0 {
		return nil, malformedf("bad address %q: no port", token)
	}
	port, err := strconv.ParseUint(token[i+1:], 16, 16)
	if err != nil {
		return nil, malformedf("bad port in address %q: %s", token, err)
	}
	if port == 0 {
		return nil, nil
	}
	b, err := hex.DecodeString(token[:i])
	if err != nil {
		return nil, malformedf("bad address %q: %s", token, err)
	}

	var ip netip.Addr
	switch family {
	case AF_INET:
		if len(b) != 4 {
			return nil, malformedf("bad IPv4 address %q", token)
		}
		var a [4]byte
		if order == binary.LittleEndian {
			a = [4]byte{b[3], b[2], b[1], b[0]}
		} else {
			copy(a[:], b)
		}
		ip = netip.AddrFrom4(a)
	case AF_INET6:
		if len(b) != 16 {
			return nil, malformedf("bad IPv6 address %q", token)
		}
		var a [16]byte
		if order == binary.LittleEndian {
			// Four little-endian words; swap each to network order.
			for w := 0; w < 16; w += 4 {
				binary.BigEndian.PutUint32(a[w:], binary.LittleEndian.Uint32(b[w:]))
			}
		} else {
			// TODO: confirm on real big-endian hardware. This keeps the bytes as printed, word by word.
			for w := 0; w < 16; w += 4 {
				binary.LittleEndian.PutUint32(a[w:], binary.LittleEndian.Uint32(b[w:]))
			}
		}
		ip = netip.AddrFrom16(a)
	default:
		return nil, invalidArgf("cannot decode address for family %s", family)
	}
	return &Addr{IP: ip.String(), Port: int(port)}, nil
}
