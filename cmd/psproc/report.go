package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cespare/psproc"
	"github.com/cespare/psproc/internal/llog"
)

func newReportCommand(opts *globalOptions) *cobra.Command {
	var confFile string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Periodically send per-process stats to Graphite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConf(confFile)
			if err != nil {
				return err
			}
			if conf.Debug {
				opts.enableDebug()
			}
			log := opts.log
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn := DialPConn(conf.GraphiteAddr)
			defer conn.Close()
			r := newReporter(conf, opts.fs(), log)
			log.Infof("reporting %d process names to %s every %dms",
				len(conf.Processes), conf.GraphiteAddr, conf.IntervalMS)
			r.run(ctx, conn)
			return nil
		},
	}
	cmd.Flags().StringVar(&confFile, "conf", "psproc.toml", "TOML configuration file")
	return cmd
}

// A reporter samples the configured processes every interval and ships the totals to Graphite.
type reporter struct {
	conf      *Conf
	fs        *psproc.FS
	log       *llog.Logger
	namespace string
	wanted    map[string]struct{}

	outgoing chan []byte        // outgoing Graphite messages
	meta     map[string]float64 // internal counters, reset after every flush
	now      func() time.Time
}

func newReporter(conf *Conf, fs *psproc.FS, log *llog.Logger) *reporter {
	r := &reporter{
		conf:      conf,
		fs:        fs,
		log:       log,
		namespace: strings.Join(namespaceParts(conf.Namespace), "."),
		wanted:    make(map[string]struct{}),
		outgoing:  make(chan []byte, 1),
		meta:      make(map[string]float64),
		now:       time.Now,
	}
	for _, name := range conf.Processes {
		r.wanted[name] = struct{}{}
	}
	return r
}

func (r *reporter) metaInc(name string) { r.meta[name]++ }

// countError records a failed read of some process. Processes exiting mid-sample and processes we may not
// inspect are expected; anything else is logged as well.
func (r *reporter) countError(pid int, err error) {
	switch {
	case errors.Is(err, psproc.ErrProcessGone):
		r.metaInc("process_gone")
	case errors.Is(err, psproc.ErrAccessDenied):
		r.metaInc("access_denied")
	default:
		r.metaInc("errors")
		r.log.Infof("error sampling pid %d: %s", pid, err)
	}
}

// sample reads every process whose name is configured and returns the stats summed per name, keyed
// <name>.<metric>.
func (r *reporter) sample() map[string]float64 {
	stats := make(map[string]float64)
	pids, err := r.fs.Pids()
	if err != nil {
		r.metaInc("errors")
		r.log.Infof("cannot list processes: %s", err)
		return stats
	}
	for _, pid := range pids {
		p := r.fs.Process(pid)
		name, err := p.Name()
		if err != nil {
			r.countError(pid, err)
			continue
		}
		if _, ok := r.wanted[name]; !ok {
			continue
		}
		if err := r.sampleProcess(p, sanitizeKey(name), stats); err != nil {
			r.countError(pid, err)
		}
	}
	return stats
}

func (r *reporter) sampleProcess(p *psproc.Process, key string, stats map[string]float64) error {
	cpu, err := p.CPUTimes()
	if err != nil {
		return err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return err
	}
	values := map[string]float64{
		"count":       1,
		"cpu.user":    cpu.User,
		"cpu.system":  cpu.System,
		"mem.rss":     float64(mem.RSS),
		"mem.vms":     float64(mem.VMS),
		"num_threads": float64(threads),
	}
	// The descriptor table of another user's process is off limits without privileges; report what we can.
	fds, err := p.NumFDs()
	switch {
	case err == nil:
		values["num_fds"] = float64(fds)
		conns, err := p.Connections("inet")
		if err != nil {
			return err
		}
		values["connections"] = float64(len(conns))
	case errors.Is(err, psproc.ErrAccessDenied):
		r.log.Debugf("pid %d: not counting descriptors: %s", p.Pid, err)
	default:
		return err
	}
	for metric, v := range values {
		stats[key+"."+metric] += v
	}
	return nil
}

// createGraphiteMessage buffers up a graphite message, one line per stat in key order. We could write
// directly to the connection and avoid the extra buffering but this allows us to use separate goroutines to
// write to graphite (potentially slow) and sample (which has to happen on schedule).
func createGraphiteMessage(namespace string, stats map[string]float64, timestamp int64) []byte {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	buf := &bytes.Buffer{}
	for _, key := range keys {
		fmt.Fprintf(buf, "%s.%s %f %d\n", namespace, key, stats[key], timestamp)
	}
	return buf.Bytes()
}

// tick takes one sample and returns the message to send (including internal stats under psproc.*).
func (r *reporter) tick() []byte {
	stats := r.sample()
	for name, v := range r.meta {
		stats["psproc."+name] = v
	}
	r.meta = make(map[string]float64)
	return createGraphiteMessage(r.namespace, stats, r.now().Unix())
}

// run samples every interval until ctx is done. It returns once the pending write (if any) has finished.
func (r *reporter) run(ctx context.Context, w io.Writer) {
	flushed := make(chan struct{})
	go func() {
		r.flush(ctx, w)
		close(flushed)
	}()
	defer func() { <-flushed }()
	ticker := time.NewTicker(time.Duration(r.conf.IntervalMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			msg := r.tick()
			if len(msg) == 0 {
				continue
			}
			select {
			case r.outgoing <- msg:
			default:
				// The previous message is still being written.
				r.log.Infof("graphite is falling behind; dropping %d bytes of stats", len(msg))
			}
		case <-ctx.Done():
			return
		}
	}
}

// flush pushes outgoing messages to graphite.
func (r *reporter) flush(ctx context.Context, w io.Writer) {
	for {
		select {
		case msg := <-r.outgoing:
			if _, err := w.Write(msg); err != nil {
				r.log.Infof("cannot write to graphite at %s: %s", r.conf.GraphiteAddr, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
