package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/moby/sys/user"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cespare/psproc"
)

func newInfoCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info PID",
		Short: "Show what procfs knows about a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidArg(args)
			if err != nil {
				return err
			}
			return runInfo(opts, opts.fs().Process(pid))
		},
	}
}

// An infoField is one line of `psproc info` output.
type infoField struct {
	name  string
	value func() (string, error)
}

func processInfoFields(p *psproc.Process) []infoField {
	return []infoField{
		{"name", p.Name},
		{"exe", p.Exe},
		{"cmdline", func() (string, error) {
			args, err := p.Cmdline()
			return strings.Join(args, " "), err
		}},
		{"cwd", p.Cwd},
		{"status", func() (string, error) {
			s, err := p.Status()
			return string(s), err
		}},
		{"ppid", func() (string, error) {
			ppid, err := p.PPid()
			return strconv.Itoa(ppid), err
		}},
		{"user", func() (string, error) {
			ids, err := p.Uids()
			if err != nil {
				return "", err
			}
			return userName(ids.Real), nil
		}},
		{"group", func() (string, error) {
			ids, err := p.Gids()
			if err != nil {
				return "", err
			}
			return groupName(ids.Real), nil
		}},
		{"terminal", p.Terminal},
		{"started", func() (string, error) {
			t, err := p.CreateTime()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s (%s ago)", t.Format(time.RFC3339), units.HumanDuration(time.Since(t))), nil
		}},
		{"cpu", func() (string, error) {
			t, err := p.CPUTimes()
			return fmt.Sprintf("user=%.2fs system=%.2fs", t.User, t.System), err
		}},
		{"memory", func() (string, error) {
			m, err := p.MemoryInfo()
			return fmt.Sprintf("rss=%s vms=%s", units.BytesSize(float64(m.RSS)), units.BytesSize(float64(m.VMS))), err
		}},
		{"threads", func() (string, error) {
			n, err := p.NumThreads()
			return strconv.Itoa(n), err
		}},
		{"fds", func() (string, error) {
			n, err := p.NumFDs()
			return strconv.Itoa(n), err
		}},
		{"ctx switches", func() (string, error) {
			c, err := p.NumCtxSwitches()
			return fmt.Sprintf("voluntary=%d involuntary=%d", c.Voluntary, c.Involuntary), err
		}},
		{"io", func() (string, error) {
			c, err := p.IOCounters()
			return fmt.Sprintf("reads=%d (%s) writes=%d (%s)",
				c.ReadCount, units.BytesSize(float64(c.ReadBytes)),
				c.WriteCount, units.BytesSize(float64(c.WriteBytes))), err
		}},
		{"nice", func() (string, error) {
			n, err := p.Nice()
			return strconv.Itoa(n), err
		}},
		{"ionice", func() (string, error) {
			n, err := p.IONice()
			return fmt.Sprintf("class=%d value=%d", n.Class, n.Value), err
		}},
		{"affinity", func() (string, error) {
			cpus, err := p.Affinity()
			return fmt.Sprint(cpus), err
		}},
	}
}

func runInfo(opts *globalOptions, p *psproc.Process) error {
	w := tabwriter.NewWriter(opts.out, 0, 8, 2, ' ', 0)
	for _, f := range processInfoFields(p) {
		v, err := f.value()
		if err != nil {
			if errors.Is(err, psproc.ErrProcessGone) {
				return err
			}
			opts.log.Debugf("%s: %s", f.name, err)
			v = "(" + shortError(err) + ")"
		}
		fmt.Fprintf(w, "%s:\t%s\n", f.name, v)
	}
	return w.Flush()
}

// shortError names the category of a failed lookup for display in place of a value.
func shortError(err error) string {
	switch {
	case errors.Is(err, psproc.ErrAccessDenied):
		return "access denied"
	case errors.Is(err, psproc.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, psproc.ErrMalformed):
		return "unreadable"
	}
	return "error"
}

func userName(uid int) string {
	u, err := user.LookupUid(uid)
	if err != nil {
		return strconv.Itoa(uid)
	}
	return u.Name
}

func groupName(gid int) string {
	g, err := user.LookupGid(gid)
	if err != nil {
		return strconv.Itoa(gid)
	}
	return g.Name
}

func newConnsCommand(opts *globalOptions) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "conns PID",
		Short: "List the sockets a process has open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidArg(args)
			if err != nil {
				return err
			}
			conns, err := opts.fs().Process(pid).Connections(kind)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(opts.out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "FD\tFAMILY\tTYPE\tLOCAL\tREMOTE\tSTATUS")
			for _, c := range conns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", c.FD, c.Family, c.Type, c.Local, c.Remote, c.Status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "inet",
		fmt.Sprintf("kind of sockets to list (%s)", strings.Join(psproc.ConnectionKinds(), ", ")))
	return cmd
}

func newMapsCommand(opts *globalOptions) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "maps PID",
		Short: "Show the memory mappings of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidArg(args)
			if err != nil {
				return err
			}
			p := opts.fs().Process(pid)
			w := tabwriter.NewWriter(opts.out, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tPERMS\tRSS\tPSS\tSWAP\tPATH")
			printRegion := func(r psproc.MemoryRegion) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Addr, r.Perms,
					units.BytesSize(float64(r.RSS)), units.BytesSize(float64(r.PSS)),
					units.BytesSize(float64(r.Swap)), r.Path)
			}
			if grouped {
				regions, err := p.MemoryMapsGrouped()
				if err != nil {
					return err
				}
				for _, r := range regions {
					printRegion(r)
				}
				return w.Flush()
			}
			s, err := p.MemoryMaps()
			if err != nil {
				return err
			}
			defer s.Close()
			for s.Scan() {
				printRegion(s.Region())
			}
			if err := s.Err(); err != nil {
				return err
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", false, "sum the mappings of each path")
	return cmd
}

func newPidsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pids",
		Short: "List the pids of running processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pids, err := opts.fs().Pids()
			if err != nil {
				return err
			}
			for _, pid := range pids {
				fmt.Fprintln(opts.out, pid)
			}
			return nil
		},
	}
}
