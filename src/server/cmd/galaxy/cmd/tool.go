package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
	"github.com/crs4/hadoop-galaxy/src/internal/toolrun"
	"github.com/crs4/hadoop-galaxy/src/internal/worker"
)

func runToolCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var input, output, outputDir, conf, executable string
	cmd := &cobra.Command{
		Use:   "run-tool --executable <program> --input <pathset> --output <pathset> [-- <tool args>...]",
		Short: "Run a tool on the data referenced by a pathset.",
		Long: `Run a tool on the data referenced by a pathset.  The tool is called with its
arguments, then every path of the input pathset, then an output path; that
output path is written to the output pathset once the tool succeeds.  The
optional YAML configuration can set HADOOP_HOME, HADOOP_CONF_DIR and a tool_env
map of environment overrides.`,
		Run: cmdutil.RunMinimumArgs(0, func(args []string) error {
			if executable == "" || input == "" || output == "" {
				return errors.New("--executable, --input and --output are required")
			}
			var c *toolrun.Config
			if conf != "" {
				var err error
				if c, err = toolrun.LoadConfig(conf); err != nil {
					return err
				}
			}
			in, err := pathset.ReadFile(input)
			if err != nil {
				return err
			}
			outputURI, err := toolrun.OutputPath(output, outputDir, "")
			if err != nil {
				return err
			}
			f, err := opts.fs()
			if err != nil {
				return err
			}
			r := &toolrun.Runner{Executable: executable, Args: args, Config: c, Stdout: os.Stdout, Stderr: os.Stderr}
			return r.Run(ctx, f, in, outputURI, output)
		}),
	}
	cmd.Flags().StringVar(&executable, "executable", "", "The program to run.")
	cmd.Flags().StringVar(&input, "input", "", "Input pathset.")
	cmd.Flags().StringVar(&output, "output", "", "Output pathset to write.")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "URI of the directory the tool writes its data into (default: "+toolrun.OutputDirName+" next to the output pathset).")
	cmd.Flags().StringVar(&conf, "conf", "", "YAML configuration file.")
	return cmd
}

func workerCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var entryPoint, output string
	var index int64
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run one task of a job, reading the task line from stdin.",
		Hidden: true,
		Run: cmdutil.RunFixedArgs(0, func([]string) error {
			f, err := opts.fs()
			if err != nil {
				return err
			}
			return task.RunWorker(ctx, f, worker.EntryPoints(), entryPoint, task.Index(index), output, os.Stdin, os.Stderr)
		}),
	}
	cmd.Flags().StringVar(&entryPoint, "entry-point", "", "Entry point to run.")
	cmd.Flags().Int64Var(&index, "index", 0, "Index of the task in its job.")
	cmd.Flags().StringVar(&output, "output", "", "Job output directory.")
	return cmd
}
