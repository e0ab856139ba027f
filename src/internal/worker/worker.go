// Package worker holds the entry points run by the executor for every task of a fan-out job.
// Workers know nothing about their siblings: everything they need is in their task line.
package worker

import (
	"context"
	"io"

	units "github.com/docker/go-units"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/partition"
	"github.com/crs4/hadoop-galaxy/src/internal/progress"
	"github.com/crs4/hadoop-galaxy/src/internal/promutil"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
)

// Entry point names.
const (
	CatPathsEntryPoint   = "catpaths"
	TextZipperEntryPoint = "textzipper"
)

// CounterGroup is the group of the counters reported by workers.
const CounterGroup = "hadoop-galaxy"

var (
	bytesWrittenMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hadoop_galaxy",
		Subsystem: "worker",
		Name:      "bytes_written_total",
		Help:      "Number of bytes written into pre-sized outputs by byte range tasks.",
	})
	bytesCompressedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hadoop_galaxy",
		Subsystem: "worker",
		Name:      "bytes_compressed_total",
		Help:      "Number of input bytes read by gzip transform tasks.",
	})
)

const (
	// CatPathsChunkSize is the size of the reads of a byte range copy.
	CatPathsChunkSize = 10 * units.MiB
)

// EntryPoints returns every worker entry point by name.
func EntryPoints() task.EntryPoints {
	return task.EntryPoints{
		CatPathsEntryPoint:   CatPaths,
		TextZipperEntryPoint: TextZipper,
	}
}

// CatPaths copies the byte range described by the task line into the pre-sized output file.
func CatPaths(ctx context.Context, f fsutil.FS, t task.Task, r task.Reporter) (retErr error) {
	rt, err := partition.ParseByteRangeTask(t.Index, t.Line)
	if err != nil {
		return err
	}
	ctx, end := log.SpanContext(ctx, "catpathsTask", log.URI("src", rt.SrcURI), log.Bytes("length", rt.SrcLength), zap.Int64("destOffset", rt.DestOffset))
	defer end(log.Errorp(&retErr))
	state := progress.NewCopyState(rt.SrcLength, nil)
	r.Status(state.Status(rt.SrcURI, rt.DestURI, rt.DestOffset))
	if !fsutil.IsLocal(rt.DestURI) {
		return errors.Errorf("output %s must be on the local filesystem", rt.DestURI)
	}
	wfs, ok := f.(fsutil.WriterAtFS)
	if !ok {
		return errors.Wrapf(fsutil.ErrUnsupported, "positioned writes to %s", rt.DestURI)
	}
	exists, err := f.Exists(ctx, rt.DestURI)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Errorf("output file %s does not exist; it must be created before tasks run", rt.DestURI)
	}
	src, err := f.Open(ctx, rt.SrcURI, rt.SrcOffset)
	if err != nil {
		return errors.Wrapf(err, "open %s", rt.SrcURI)
	}
	defer errors.Close(&retErr, src, "close %s", rt.SrcURI)
	dst, err := wfs.OpenWriterAt(ctx, rt.DestURI)
	if err != nil {
		return errors.Wrapf(err, "open %s for writing", rt.DestURI)
	}
	defer errors.Close(&retErr, dst, "close %s", rt.DestURI)
	w := &promutil.CountingWriter{
		Writer: io.NewOffsetWriter(dst, rt.DestOffset),
		Counter: promutil.MultiAdder{bytesWrittenMetric, promutil.AdderFunc(func(n float64) {
			state.Add(int64(n))
			r.Count(CounterGroup, "file bytes written", int64(n))
			r.Status(state.Status(rt.SrcURI, rt.DestURI, rt.DestOffset))
		})},
	}
	n, err := io.CopyBuffer(w, io.LimitReader(src, rt.SrcLength), make([]byte, min(CatPathsChunkSize, max(rt.SrcLength, 1))))
	if err != nil {
		return errors.Wrapf(err, "copy %s to %s", rt.SrcURI, rt.DestURI)
	}
	if n != rt.SrcLength {
		return errors.Errorf("%s ended after %d bytes, expected %d", rt.SrcURI, n, rt.SrcLength)
	}
	r.Count(CounterGroup, "files catted", 1)
	return nil
}
