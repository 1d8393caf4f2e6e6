package host

import (
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
)

// LoadAverages returns the 1, 5, and 15 minute load averages as reported by /proc/loadavg.
func LoadAverages() ([3]float64, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return [3]float64{}, errors.Wrapf(err, "opening procfs at %s", procRoot)
	}
	load, err := fs.LoadAvg()
	if err != nil {
		return [3]float64{}, errors.Wrap(err, "reading load averages")
	}
	return [3]float64{load.Load1, load.Load5, load.Load15}, nil
}
