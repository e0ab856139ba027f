package worker

import (
	"context"
	"fmt"
	"io"

	units "github.com/docker/go-units"
	"github.com/klauspost/compress/gzip"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/partition"
	"github.com/crs4/hadoop-galaxy/src/internal/promutil"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
)

const (
	// TextZipperChunkSize is the size of the reads of a gzip transform.
	TextZipperChunkSize = 2 * units.MiB
	// TextZipperStatusEvery is the number of bytes read between two status reports.
	TextZipperStatusEvery = 10 * units.MB
	// TextZipperExtension is the extension of transform outputs.
	TextZipperExtension = ".gz"
)

// TextZipper gzips the input named by the task line into the task's output.
func TextZipper(ctx context.Context, f fsutil.FS, t task.Task, r task.Reporter) (retErr error) {
	tt, err := partition.ParseTransformTask(t.Index, t.Line)
	if err != nil {
		return err
	}
	src, err := tt.SrcURI()
	if err != nil {
		return err
	}
	dest, err := t.OutputURI(TextZipperExtension)
	if err != nil {
		return err
	}
	ctx, end := log.SpanContext(ctx, "textzipperTask", log.URI("src", src), log.URI("dest", dest))
	defer end(log.Errorp(&retErr))
	fi, err := f.Stat(ctx, src)
	if err != nil {
		return errors.Wrapf(err, "stat %s", src)
	}
	status := func(done int64) {
		r.Status(fmt.Sprintf("Compressing %s (%0.1f / %0.1f MB)", src, float64(done)/units.MiB, float64(fi.Size)/units.MiB))
	}
	status(0)
	in, err := f.Open(ctx, src, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer errors.Close(&retErr, in, "close %s", src)
	out, err := f.Create(ctx, dest)
	if err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}
	defer errors.Close(&retErr, out, "close %s", dest)
	zw := gzip.NewWriter(out)
	var done, lastStatus int64
	cr := &promutil.CountingReader{
		Reader: in,
		Counter: promutil.MultiAdder{bytesCompressedMetric, promutil.AdderFunc(func(n float64) {
			done += int64(n)
			r.Count(CounterGroup, "bytes compressed", int64(n))
			if done-lastStatus > TextZipperStatusEvery {
				status(done)
				lastStatus = done
			}
		})},
	}
	if _, err := io.CopyBuffer(zw, cr, make([]byte, TextZipperChunkSize)); err != nil {
		return errors.Wrapf(err, "compress %s", src)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "finish %s", dest)
	}
	status(done)
	r.Count(CounterGroup, "files compressed", 1)
	return nil
}
