package host

import (
	proc "github.com/cespare/goproc"
	"github.com/pkg/errors"
)

// NetIOCountersStat holds cumulative statistics for one network interface.
type NetIOCountersStat struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
	ErrIn       uint64
	ErrOut      uint64
	DropIn      uint64
	DropOut     uint64
}

// NetIOCounters returns statistics for every network interface, keyed by interface name.
func NetIOCounters() (map[string]*NetIOCountersStat, error) {
	rx, tx, err := proc.NetDevStats()
	if err != nil {
		return nil, errors.Wrap(err, "reading /proc/net/dev")
	}
	result := make(map[string]*NetIOCountersStat, len(rx))
	for dev, r := range rx {
		t := tx[dev]
		result[dev] = &NetIOCountersStat{
			BytesSent:   t["bytes"],
			BytesRecv:   r["bytes"],
			PacketsSent: t["packets"],
			PacketsRecv: r["packets"],
			ErrIn:       r["errs"],
			ErrOut:      t["errs"],
			DropIn:      r["drop"],
			DropOut:     t["drop"],
		}
	}
	return result, nil
}
