package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/catpaths"
	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/dataset"
	"github.com/crs4/hadoop-galaxy/src/internal/fanout"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/progress"
)

func catPathsCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var deleteSource, bar bool
	cmd := &cobra.Command{
		Use:   "cat-paths <input-pathset> <output-path>",
		Short: "Concatenate the data referenced by a pathset into a single file.",
		Long: `Concatenate the data referenced by a pathset into a single file, in order.
Directories are traversed in name order.  A pathset holding a single local file
is hard linked to a local output when possible.`,
		Run: cmdutil.RunFixedArgs(2, func(args []string) error {
			ps, err := pathset.ReadFile(args[0])
			if err != nil {
				return err
			}
			dest, err := fsutil.Sanitize(args[1])
			if err != nil {
				return err
			}
			f, err := opts.fs()
			if err != nil {
				return err
			}
			res, err := catpaths.Copy(ctx, f, ps, dest, catpaths.Options{DeleteSource: deleteSource, Bar: bar})
			if err != nil {
				return err
			}
			log.Info(ctx, "done", zap.Int("files", res.Leaves), log.Bytes("size", res.Bytes), zap.Bool("linked", res.Linked))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete the data referenced by the pathset after a successful copy.")
	cmd.Flags().BoolVar(&bar, "progress", progress.IsTerminal(), "Show a progress bar.")
	return cmd
}

func runJob(ctx context.Context, opts *globalOptions, scratchRoot string, plan fanout.Plan) error {
	f, err := opts.fs()
	if err != nil {
		return err
	}
	e, err := opts.newExecutor(f)
	if err != nil {
		return err
	}
	c := fanout.New(f, e, plan)
	if scratchRoot != "" {
		if c.ScratchRoot, err = fsutil.Sanitize(scratchRoot); err != nil {
			return err
		}
	}
	return c.Run(ctx)
}

func distCatPathsCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var scratchRoot string
	cmd := &cobra.Command{
		Use:   "dist-cat-paths <input-pathset> <output-path>",
		Short: "Concatenate the data referenced by a pathset with one task per file.",
		Long: `Concatenate the data referenced by a pathset into a single file on the local
filesystem, copying every file in its own task.  The output is created at its
final size first and every task writes its own range of it, so the filesystem
holding it must support concurrent writes to disjoint ranges of one file.`,
		Run: cmdutil.RunFixedArgs(2, func(args []string) error {
			ps, err := pathset.ReadFile(args[0])
			if err != nil {
				return err
			}
			plan, err := fanout.NewDistCat(ps, args[1])
			if err != nil {
				return err
			}
			return runJob(ctx, opts, scratchRoot, plan)
		}),
	}
	cmd.Flags().StringVar(&scratchRoot, "scratch-root", "", "Directory for the job's scratch files (default: the output's directory).")
	return cmd
}

func distTextZipperCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var scratchRoot string
	cmd := &cobra.Command{
		Use:   "dist-text-zipper <input-path>... <output-dir>",
		Short: "Gzip files, one task per file.",
		Long: `Gzip every file under the input paths into output-dir, which must not exist.
Files found inside an input directory keep their path relative to it; files
given directly are named by their base name.`,
		Run: cmdutil.RunMinimumArgs(2, func(args []string) error {
			plan, err := fanout.NewTextZipper(args[:len(args)-1], args[len(args)-1])
			if err != nil {
				return err
			}
			return runJob(ctx, opts, scratchRoot, plan)
		}),
	}
	cmd.Flags().StringVar(&scratchRoot, "scratch-root", "", "Directory for the job's scratch files (default: the output's parent).")
	return cmd
}

func putDatasetCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var workspace string
	var parallelism int
	cmd := &cobra.Command{
		Use:   "put-dataset <src-pathset> <dest-pathset>",
		Short: "Copy the data referenced by a pathset into a workspace.",
		Long: `Copy the data referenced by a pathset into <workspace>/<name of dest-pathset>,
keeping the full path of every source below it, and write a pathset for the
copy to dest-pathset.`,
		Run: cmdutil.RunFixedArgs(2, func(args []string) error {
			ps, err := pathset.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := opts.fs()
			if err != nil {
				return err
			}
			out, err := dataset.Put(ctx, f, ps, workspace, filepath.Base(args[1]), parallelism)
			if err != nil {
				return err
			}
			return out.WriteFile(args[1])
		}),
	}
	cmd.Flags().StringVar(&workspace, "workspace", opts.env.Dataset.Workspace, "URI of the directory datasets are copied into (default: $HADOOP_GALAXY_PUT_DIR).")
	cmd.Flags().IntVar(&parallelism, "copy-parallelism", opts.env.Dataset.Parallelism, "Number of files copied at once.")
	return cmd
}
