// Command psproc inspects processes through procfs and can report per-process stats to Graphite.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cespare/psproc"
	"github.com/cespare/psproc/internal/llog"
)

type globalOptions struct {
	procRoot string
	debug    bool

	logger *logrus.Logger
	log    *llog.Logger
	out    io.Writer
}

func (o *globalOptions) setup() {
	o.logger = logrus.New()
	o.logger.SetOutput(os.Stderr)
	o.log = llog.NewLogger(o.logger, false)
	if o.debug {
		o.enableDebug()
	}
}

// enableDebug turns on debug output for both the command's logger and the FS loggers derived from it.
func (o *globalOptions) enableDebug() {
	o.debug = true
	o.logger.SetLevel(logrus.DebugLevel)
	o.log = llog.NewLogger(o.logger, true)
}

func (o *globalOptions) fs() *psproc.FS {
	return psproc.NewFS(o.procRoot, psproc.WithLogger(o.logger))
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{out: os.Stdout}
	cmd := &cobra.Command{
		Use:           "psproc",
		Short:         "Inspect processes through procfs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setup()
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.procRoot, "proc", psproc.DefaultRoot, "procfs mount point")
	flags.BoolVar(&opts.debug, "debug", false, "log debug output to stderr")

	cmd.AddCommand(
		newInfoCommand(opts),
		newConnsCommand(opts),
		newMapsCommand(opts),
		newPidsCommand(opts),
		newHostCommand(opts),
		newReportCommand(opts),
	)
	return cmd
}

// pidArg parses the single pid argument shared by the per-process commands.
func pidArg(args []string) (int, error) {
	pid, err := strconv.Atoi(args[0])
	if err != nil || pid < 0 {
		return 0, fmt.Errorf("bad pid %q", args[0])
	}
	return pid, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "psproc:", err)
		os.Exit(1)
	}
}
