package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/cespare/psproc/host"
)

func newHostCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Show system-wide counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts)
		},
	}
}

func runHost(opts *globalOptions) error {
	w := tabwriter.NewWriter(opts.out, 0, 8, 2, ' ', 0)

	boot, err := host.BootTime()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "boot time:\t%s (up %s)\n", boot.Format(time.RFC3339), units.HumanDuration(time.Since(boot)))

	ncpu, err := host.NumCPU()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "cpus:\t%d\n", ncpu)

	cpu, err := host.CPUTimes()
	if err != nil {
		return err
	}
	fmt.Fprint(w, "cpu times:\t")
	for _, field := range cpu.Fields {
		v, _ := cpu.Get(field)
		fmt.Fprintf(w, "%s=%.0fs ", field, v)
	}
	fmt.Fprintln(w)

	load, err := host.LoadAverages()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "load:\t%.2f %.2f %.2f\n", load[0], load[1], load[2])

	vm, err := host.VirtualMemory()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "memory:\ttotal=%s available=%s used=%.1f%%\n",
		units.BytesSize(float64(vm.Total)), units.BytesSize(float64(vm.Available)), vm.Percent)

	swap, err := host.SwapMemory()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "swap:\ttotal=%s used=%s in=%s out=%s\n",
		units.BytesSize(float64(swap.Total)), units.BytesSize(float64(swap.Used)),
		units.BytesSize(float64(swap.Sin)), units.BytesSize(float64(swap.Sout)))

	nets, err := host.NetIOCounters()
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(nets) {
		n := nets[name]
		fmt.Fprintf(w, "net %s:\trecv=%s sent=%s\n", name,
			units.BytesSize(float64(n.BytesRecv)), units.BytesSize(float64(n.BytesSent)))
	}

	disks, err := host.DiskIOCounters()
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(disks) {
		d := disks[name]
		fmt.Fprintf(w, "disk %s:\tread=%s written=%s\n", name,
			units.BytesSize(float64(d.ReadBytes)), units.BytesSize(float64(d.WriteBytes)))
	}

	parts, err := host.DiskPartitions(false)
	if err != nil {
		return err
	}
	for _, part := range parts {
		usage, err := host.DiskUsage(part.Mountpoint)
		if err != nil {
			opts.log.Debugf("skipping %s: %s", part.Mountpoint, err)
			continue
		}
		fmt.Fprintf(w, "fs %s:\t%s on %s, %s of %s used (%.1f%%)\n", part.Mountpoint, part.Fstype, part.Device,
			units.BytesSize(float64(usage.Used)), units.BytesSize(float64(usage.Total)), usage.Percent)
	}
	return w.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
