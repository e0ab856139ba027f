// Package dataset copies the data referenced by a pathset into a workspace directory, and
// describes the copy with a new pathset.
package dataset

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
)

// Config is read from the environment by cmdutil.Populate.
type Config struct {
	// Workspace is the directory datasets are copied into.
	Workspace string `env:"HADOOP_GALAXY_PUT_DIR"`
	// Parallelism is the number of files copied at once.
	Parallelism int `env:"HADOOP_GALAXY_PUT_PARALLELISM,default=4"`
}

// Put copies the data of ps into <workspace>/<name>, keeping the full source path of every entry
// below it, and returns the pathset of the copy.  Wildcard entries are expanded.  The destination
// must not exist; if the copy fails it is removed.
func Put(ctx context.Context, f fsutil.FS, ps *pathset.Pathset, workspace, name string, parallelism int) (_ *pathset.Pathset, retErr error) {
	if workspace == "" {
		return nil, errors.New("no workspace given; use --workspace or HADOOP_GALAXY_PUT_DIR")
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, errors.Errorf("invalid dataset name %q", name)
	}
	workspace, err := fsutil.Sanitize(workspace)
	if err != nil {
		return nil, err
	}
	ctx, end := log.SpanContextL(ctx, "putDataset", log.InfoLevel, log.URI("workspace", workspace), zap.String("name", name))
	defer end(log.Errorp(&retErr))
	if err := prepareWorkspace(ctx, f, workspace); err != nil {
		return nil, err
	}
	dest, err := fsutil.Join(workspace, name)
	if err != nil {
		return nil, err
	}
	exists, err := f.Exists(ctx, dest)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Errorf("destination path %s already exists", dest)
	}
	srcs, err := resolve.New(f).GlobAll(ctx, ps.Paths())
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "expanded sources", zap.Int("count", len(srcs)))
	if err := copyAll(ctx, f, srcs, dest, parallelism); err != nil {
		log.Info(ctx, "cleaning up destination", log.URI("dest", dest))
		if rmErr := f.Remove(ctx, dest, true); rmErr != nil {
			log.Error(ctx, "could not remove destination", log.URI("dest", dest), zap.Error(rmErr))
			return nil, errors.WithSuppressed(err, rmErr)
		}
		return nil, err
	}
	out, err := pathset.New(dest)
	if err != nil {
		return nil, err
	}
	out.Datatype = ps.Datatype
	out.Comment = "Copied from\n" + strings.Join(ps.Paths(), "\n")
	return out, nil
}

func prepareWorkspace(ctx context.Context, f fsutil.FS, workspace string) error {
	fi, err := f.Stat(ctx, workspace)
	switch {
	case fsutil.IsNotExist(err):
		log.Info(ctx, "workspace directory doesn't exist, creating it", log.URI("workspace", workspace))
		return errors.Wrapf(f.Mkdir(ctx, workspace), "create workspace %s", workspace)
	case err != nil:
		return err
	case fi.Kind != fsutil.KindDir:
		return errors.Errorf("workspace %s exists and is not a directory", workspace)
	}
	return nil
}

// Target is where src is copied to under dest: dest joined with the path of src.
func Target(dest, src string) (string, error) {
	u, err := fsutil.ParseURI(src)
	if err != nil {
		return "", err
	}
	return fsutil.Join(dest, u.Path)
}

func copyAll(ctx context.Context, f fsutil.FS, srcs []string, dest string, parallelism int) error {
	r := resolve.New(f)
	var leaves []resolve.Leaf
	for _, src := range srcs {
		ls, err := r.Walk(ctx, src)
		if err != nil {
			return err
		}
		leaves = append(leaves, ls...)
	}
	dirs := make(map[string]bool)
	targets := make([]string, len(leaves))
	for i, l := range leaves {
		t, err := Target(dest, l.URI)
		if err != nil {
			return err
		}
		targets[i] = t
		u := fsutil.MustParseURI(t)
		dirs[u.Dir().String()] = true
	}
	for d := range dirs {
		if err := f.Mkdir(ctx, d); err != nil {
			return errors.Wrapf(err, "create %s", d)
		}
	}
	eg, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		eg.SetLimit(parallelism)
	}
	for i, l := range leaves {
		eg.Go(func() error {
			log.Debug(ctx, "copying", log.URI("src", l.URI), log.URI("dst", targets[i]))
			return errors.Wrapf(fsutil.CopyFile(ctx, f, f, l.URI, targets[i]), "copy %s", path.Base(l.URI))
		})
	}
	return errors.EnsureStack(eg.Wait())
}
