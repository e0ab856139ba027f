package task

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pctx"
)

// LocalExecutor runs tasks as goroutines of the current process, at most Parallelism at a time.
// Tasks share nothing but the filesystem.
type LocalExecutor struct {
	FS          fsutil.FS
	EntryPoints EntryPoints
	// Parallelism defaults to GOMAXPROCS.
	Parallelism int
	Stats       Stats
	Counters    Counters
}

var _ Executor = (*LocalExecutor)(nil)

// NewLocalExecutor returns a LocalExecutor.
func NewLocalExecutor(f fsutil.FS, entryPoints EntryPoints, parallelism int) *LocalExecutor {
	return &LocalExecutor{FS: f, EntryPoints: entryPoints, Parallelism: parallelism}
}

func parallelism(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Submit implements Executor.
func (e *LocalExecutor) Submit(ctx context.Context, job Job) (retErr error) {
	if err := job.Validate(); err != nil {
		return err
	}
	fn, err := e.EntryPoints.Get(job.EntryPoint)
	if err != nil {
		return err
	}
	lines, err := ReadDescriptorFile(ctx, e.FS, job.TaskList)
	if err != nil {
		return err
	}
	if len(lines) != job.TaskCount {
		return errors.Errorf("task list %s has %d tasks, expected %d", job.TaskList, len(lines), job.TaskCount)
	}
	ctx, end := log.SpanContextL(ctx, "localExecutor", log.InfoLevel, zap.String("entryPoint", job.EntryPoint), zap.Int("tasks", job.TaskCount))
	defer func() { end(log.Errorp(&retErr), zap.Object("stats", &e.Stats)) }()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism(e.Parallelism))
	for i, line := range lines {
		t := Task{Index: Index(i), Line: line, OutputDir: job.Output}
		eg.Go(func() error {
			tctx := pctx.Child(ctx, "task", pctx.WithFields(log.TaskIndex(int64(t.Index))))
			e.Stats.Started.Inc()
			if err := fn(tctx, e.FS, t, NewLogReporter(tctx, job.EntryPoint, &e.Counters)); err != nil {
				e.Stats.Failed.Inc()
				return errors.Wrapf(err, "task %d", t.Index)
			}
			e.Stats.Succeeded.Inc()
			return nil
		})
	}
	return errors.EnsureStack(eg.Wait())
}
