// Package catpaths concatenates the data referenced by a pathset into a single file, in order.
package catpaths

import (
	"context"
	"io"
	"time"

	units "github.com/docker/go-units"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/progress"
	"github.com/crs4/hadoop-galaxy/src/internal/promutil"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
)

var (
	bytesWrittenMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hadoop_galaxy",
		Subsystem: "catpaths",
		Name:      "bytes_written_total",
		Help:      "Number of bytes appended to concatenated outputs.",
	})
	filesLinkedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hadoop_galaxy",
		Subsystem: "catpaths",
		Name:      "files_linked_total",
		Help:      "Number of outputs produced by hard linking instead of copying.",
	})
)

const (
	// DefaultChunkSize is the size of the reads used to stream each leaf.
	DefaultChunkSize = 10 * units.MiB
	// DefaultProgressEvery is the number of leaves between two progress lines.
	DefaultProgressEvery = 5
)

// Options configures Copy.
type Options struct {
	// DeleteSource removes the pathset entries after a successful copy.
	DeleteSource bool
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// ProgressEvery defaults to DefaultProgressEvery.
	ProgressEvery int
	// Bar draws a progress bar on stderr when it is a terminal.
	Bar bool
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	return o
}

// Result describes a finished copy.
type Result struct {
	Leaves int
	Bytes  int64
	Linked bool
}

// Copy writes the concatenation of every leaf of ps, in resolver order, to dest.
//
// If ps holds a single local file and dest is local, dest is hard linked to it instead; if linking
// fails the file is copied.  If writing fails after dest was opened, dest is removed, so that it
// is either complete or absent; a dest that cannot be opened is left alone.  A failure to remove it is attached to the returned error as a suppressed error.
//
// With DeleteSource the entries of ps are removed after the copy succeeds.  A failure to remove
// an entry is logged and does not fail the copy.
func Copy(ctx context.Context, f fsutil.FS, ps *pathset.Pathset, dest string, opts Options) (_ Result, retErr error) {
	ctx, end := log.SpanContextL(ctx, "catpaths", log.InfoLevel, log.URI("dest", dest), zap.Int("entries", ps.Len()))
	defer end(log.Errorp(&retErr))
	opts = opts.withDefaults()
	if !fsutil.HasScheme(dest) {
		return Result{}, errors.Errorf("destination %q must be a full URI", dest)
	}
	if ps.Len() == 0 {
		return Result{}, errors.New("cannot concatenate an empty pathset")
	}
	for _, p := range ps.Paths() {
		if p == dest {
			return Result{}, errors.Errorf("destination %s is also a source", dest)
		}
	}
	if res, ok := tryLink(ctx, f, ps, dest, opts); ok {
		return res, nil
	}
	leaves, err := resolve.New(f).WalkAll(ctx, ps.Paths())
	if err != nil {
		return Result{}, err
	}
	res := Result{Leaves: len(leaves)}
	w, err := f.Create(ctx, dest)
	if err != nil {
		return res, errors.Wrapf(err, "open %s for writing", dest)
	}
	start := time.Now()
	n, err := write(ctx, f, leaves, w, dest, opts)
	res.Bytes = n
	if err != nil {
		log.Info(ctx, "trying to clean up partial output", log.URI("dest", dest))
		if rmErr := f.Remove(ctx, dest, false); rmErr != nil {
			log.Error(ctx, "could not remove partial output", log.URI("dest", dest), zap.Error(rmErr))
			return res, errors.WithSuppressed(err, rmErr)
		}
		return res, err
	}
	log.Info(ctx, "concatenation finished", zap.String("throughput", progress.Throughput(n, time.Since(start))))
	if opts.DeleteSource {
		deleteSources(ctx, f, ps)
	}
	return res, nil
}

func tryLink(ctx context.Context, f fsutil.FS, ps *pathset.Pathset, dest string, opts Options) (Result, bool) {
	src := ps.Paths()[0]
	if ps.Len() != 1 || !fsutil.IsLocal(src) || !fsutil.IsLocal(dest) {
		return Result{}, false
	}
	fi, err := f.Stat(ctx, src)
	if err != nil || fi.Kind != fsutil.KindFile {
		return Result{}, false
	}
	if dfi, err := f.Stat(ctx, dest); err == nil && dfi.Kind != fsutil.KindFile {
		return Result{}, false
	}
	log.Debug(ctx, "pathset contains a single local file, trying to hard link")
	if err := f.Remove(ctx, dest, false); err != nil {
		log.Debug(ctx, "could not remove existing destination", zap.Error(err))
	}
	if err := f.Link(ctx, src, dest); err != nil {
		log.Info(ctx, "failed to hard link, will copy", log.URI("src", src), zap.Error(err))
		return Result{}, false
	}
	log.Info(ctx, "hard linked instead of copying", log.URI("src", src))
	filesLinkedMetric.Inc()
	if opts.DeleteSource {
		deleteSources(ctx, f, ps)
	}
	return Result{Leaves: 1, Bytes: fi.Size, Linked: true}, true
}

// write streams leaves into w and closes it.
func write(ctx context.Context, f fsutil.FS, leaves []resolve.Leaf, w io.WriteCloser, dest string, opts Options) (n int64, retErr error) {
	total := resolve.TotalSize(leaves)
	reportProgress := func(i int) {
		log.Info(ctx, "progress",
			zap.Int("done", i),
			zap.Int("of", len(leaves)),
			zap.Float64("percent", percent(i, len(leaves))),
			log.Bytes("copied", n))
	}
	defer errors.Close(&retErr, w, "close %s", dest)
	var out io.Writer = &promutil.CountingWriter{Writer: w, Counter: bytesWrittenMetric}
	if opts.Bar {
		pw := progress.NewWriter(out, "concatenating", total)
		defer func() {
			if retErr != nil {
				pw.Abort()
				return
			}
			pw.Finish()
		}()
		out = pw
	}
	log.Debug(ctx, "destination opened for writing", log.Bytes("total", total))
	buf := make([]byte, opts.ChunkSize)
	reportProgress(0)
	for i, l := range leaves {
		m, err := appendLeaf(ctx, f, l.URI, out, buf)
		n += m
		if err != nil {
			return n, err
		}
		if (i+1)%opts.ProgressEvery == 0 && i+1 < len(leaves) {
			reportProgress(i + 1)
		}
	}
	reportProgress(len(leaves))
	return n, nil
}

func appendLeaf(ctx context.Context, f fsutil.FS, uri string, w io.Writer, buf []byte) (_ int64, retErr error) {
	log.Debug(ctx, "appending", log.URI("src", uri))
	r, err := f.Open(ctx, uri, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", uri)
	}
	defer errors.Close(&retErr, r, "close %s", uri)
	n, err := io.CopyBuffer(w, r, buf)
	if err != nil {
		return n, errors.Wrapf(err, "append %s", uri)
	}
	return n, nil
}

func deleteSources(ctx context.Context, f fsutil.FS, ps *pathset.Pathset) {
	log.Info(ctx, "deleting source data")
	for _, p := range ps.Paths() {
		if err := f.Remove(ctx, p, true); err != nil {
			log.Warn(ctx, "unable to delete source path", log.URI("src", p), zap.Error(err))
		}
	}
}

func percent(i, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(i) / float64(total)
}
