// Package cmd implements the galaxy binary: tools to work with pathsets and to copy and transform
// the data they reference, sequentially or as fan-out jobs.
package cmd

import (
	"context"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/dataset"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/promutil"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
	"github.com/crs4/hadoop-galaxy/src/internal/worker"
)

// Env is the configuration read from the environment.  Flags override it.
type Env struct {
	LogLevel string `env:"HADOOP_GALAXY_LOG_LEVEL,default=info"`
	// DefaultFS is the filesystem of paths given without a scheme, e.g. hdfs://namenode:8020.
	DefaultFS string `env:"HADOOP_GALAXY_DEFAULT_FS"`
	Dataset   dataset.Config
}

const (
	localExecutor   = "local"
	processExecutor = "process"
)

type globalOptions struct {
	env         *Env
	logLevel    string
	executor    string
	parallelism int
	metricsAddr string
	stacks      bool
}

func (o *globalOptions) fs() (*fsutil.Registry, error) {
	return fsutil.NewDefaultRegistry()
}

func (o *globalOptions) newExecutor(f fsutil.FS) (task.Executor, error) {
	switch o.executor {
	case localExecutor:
		return task.NewLocalExecutor(f, worker.EntryPoints(), o.parallelism), nil
	case processExecutor:
		self, err := os.Executable()
		if err != nil {
			return nil, errors.EnsureStack(err)
		}
		return &task.ProcessExecutor{
			FS:          f,
			Command:     []string{self, "worker"},
			Environ:     append(os.Environ(), "HADOOP_GALAXY_LOG_LEVEL="+o.logLevel),
			Parallelism: o.parallelism,
		}, nil
	}
	return nil, errors.Errorf("unknown executor %q, expected %q or %q", o.executor, localExecutor, processExecutor)
}

func (o *globalOptions) setup(ctx context.Context) error {
	cmdutil.PrintErrorStacks = o.stacks
	if err := log.SetLevel(o.logLevel); err != nil {
		return errors.Wrapf(err, "invalid log level %q", o.logLevel)
	}
	if o.metricsAddr == "" {
		return nil
	}
	l, err := net.Listen("tcp", o.metricsAddr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", o.metricsAddr)
	}
	log.Info(ctx, "serving metrics", zap.String("addr", l.Addr().String()))
	go func() {
		if err := promutil.ListenAndServe(ctx, l); err != nil {
			log.Error(ctx, "metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

// GalaxyCmd returns the root command.
func GalaxyCmd(ctx context.Context, env *Env) *cobra.Command {
	opts := &globalOptions{env: env}
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Work with pathsets and the data they reference.",
		Long: `Work with pathsets and the data they reference.

A pathset is a small text file listing the URIs of a dataset.  The commands in
this tool create, split and copy pathsets, and concatenate or transform the
data they reference, either in this process or as a job of independent tasks.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", env.LogLevel, "Log level: debug, info, warn or error.")
	flags.StringVar(&opts.executor, "executor", localExecutor, "How jobs run their tasks: "+localExecutor+" (goroutines) or "+processExecutor+" (one process per task).")
	flags.IntVar(&opts.parallelism, "parallelism", 0, "Maximum number of tasks running at once; 0 means GOMAXPROCS.")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address while the command runs.")
	flags.BoolVar(&opts.stacks, "stacks", false, "Print stack traces with errors.")

	root.AddCommand(
		makePathsetCmd(ctx, opts),
		splitPathsetCmd(ctx, opts),
		catPathsCmd(ctx, opts),
		distCatPathsCmd(ctx, opts),
		distTextZipperCmd(ctx, opts),
		putDatasetCmd(ctx, opts),
		runToolCmd(ctx, opts),
		workerCmd(ctx, opts),
	)
	return root
}
