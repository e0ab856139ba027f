package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
)

func makePathsetCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var forceLocal bool
	var dataFormat string
	cmd := &cobra.Command{
		Use:   "make-pathset <output-path> [<path>...]",
		Short: "Make a pathset file from one or more paths.",
		Long: `Make a pathset file from one or more paths.  If no paths are given they are
read from stdin, one per line.  Paths without a scheme are put on the default
filesystem (HADOOP_GALAXY_DEFAULT_FS), or on the local one with --force-local.
Wildcards are expanded.`,
		Run: cmdutil.RunMinimumArgs(1, func(args []string) error {
			paths := args[1:]
			if len(paths) == 0 {
				log.Info(ctx, "reading paths from stdin")
				lines, err := task.ReadDescriptor(os.Stdin)
				if err != nil {
					return err
				}
				for _, l := range lines {
					if l = strings.TrimSpace(l); l != "" {
						paths = append(paths, l)
					}
				}
			}
			log.Info(ctx, "read paths", zap.Int("count", len(paths)))
			mode := resolve.DefaultMode
			if forceLocal {
				mode = resolve.LocalMode
			}
			var uris []string
			for _, p := range paths {
				u, err := resolve.Qualify(mode, opts.env.DefaultFS, p)
				if err != nil {
					return err
				}
				uris = append(uris, u)
			}
			f, err := opts.fs()
			if err != nil {
				return err
			}
			expanded, err := resolve.New(f).GlobAll(ctx, uris)
			if err != nil {
				return err
			}
			ps, err := pathset.New(expanded...)
			if err != nil {
				return err
			}
			ps.Datatype = dataFormat
			return ps.WriteFile(args[0])
		}),
	}
	cmd.Flags().BoolVar(&forceLocal, "force-local", false, "Force paths to be local (file:// URIs).")
	cmd.Flags().StringVar(&dataFormat, "data-format", "", "Set the type of the pathset contents (e.g. 'fastq').")
	return cmd
}

func splitPathsetCmd(ctx context.Context, opts *globalOptions) *cobra.Command {
	var anchorEnd bool
	var expandLevels int
	cmd := &cobra.Command{
		Use:   "split-pathset <expression> <input-pathset> <output-true> <output-false>",
		Short: "Split a pathset into two by regular expression.",
		Long: `Split a pathset into two by regular expression.  Paths matching the expression
from their start go to output-true, the others to output-false.  With
--expand-levels N each entry is first expanded up to N directory levels and the
expression is applied to each resulting path.`,
		Run: cmdutil.RunFixedArgs(4, func(args []string) error {
			if expandLevels < 0 {
				return errors.Errorf("number of levels to descend into a path must be >= 0, got %d", expandLevels)
			}
			re, err := pathset.CompileSplitExpr(args[0], anchorEnd)
			if err != nil {
				return err
			}
			src, err := pathset.ReadFile(args[1])
			if err != nil {
				return err
			}
			var expand func(string) ([]string, error)
			if expandLevels > 0 {
				f, err := opts.fs()
				if err != nil {
					return err
				}
				r := resolve.New(f)
				expand = func(uri string) ([]string, error) {
					leaves, err := r.Expand(ctx, uri, expandLevels)
					if err != nil {
						return nil, err
					}
					return resolve.URIs(leaves), nil
				}
			}
			match, noMatch, err := pathset.Split(src, re, expand)
			if err != nil {
				return err
			}
			log.Info(ctx, "split pathset", zap.Int("match", match.Len()), zap.Int("noMatch", noMatch.Len()))
			if err := match.WriteFile(args[2]); err != nil {
				return err
			}
			return noMatch.WriteFile(args[3])
		}),
	}
	cmd.Flags().BoolVarP(&anchorEnd, "anchor-end", "a", false, "The expression must also match at the end of the path.")
	cmd.Flags().IntVarP(&expandLevels, "expand-levels", "e", 0, "Number of levels to descend into each path.")
	return cmd
}
