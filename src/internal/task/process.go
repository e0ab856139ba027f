package task

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/pctx"
)

// ProcessExecutor runs every task in its own process, at most Parallelism at a time.  The process
// is Command followed by the flags
//
//	--entry-point NAME --index I --output DIR
//
// and receives the task line on stdin.  It reports through stderr in the format written by
// StreamReporter; see RunWorker for the other end.
type ProcessExecutor struct {
	FS          fsutil.FS
	Command     []string
	Environ     []string
	Parallelism int
	Stats       Stats
	Counters    Counters
}

var _ Executor = (*ProcessExecutor)(nil)

// Submit implements Executor.
func (e *ProcessExecutor) Submit(ctx context.Context, job Job) (retErr error) {
	if err := job.Validate(); err != nil {
		return err
	}
	if len(e.Command) == 0 {
		return errors.New("process executor has no worker command")
	}
	lines, err := ReadDescriptorFile(ctx, e.FS, job.TaskList)
	if err != nil {
		return err
	}
	if len(lines) != job.TaskCount {
		return errors.Errorf("task list %s has %d tasks, expected %d", job.TaskList, len(lines), job.TaskCount)
	}
	ctx, end := log.SpanContextL(ctx, "processExecutor", log.InfoLevel, zap.String("entryPoint", job.EntryPoint), zap.Int("tasks", job.TaskCount))
	defer func() { end(log.Errorp(&retErr), zap.Object("stats", &e.Stats)) }()
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism(e.Parallelism))
	for i, line := range lines {
		eg.Go(func() error {
			tctx := pctx.Child(ctx, "task", pctx.WithFields(log.TaskIndex(int64(i))))
			e.Stats.Started.Inc()
			if err := e.run(tctx, job, Index(i), line); err != nil {
				e.Stats.Failed.Inc()
				return errors.Wrapf(err, "task %d", i)
			}
			e.Stats.Succeeded.Inc()
			return nil
		})
	}
	return errors.EnsureStack(eg.Wait())
}

func (e *ProcessExecutor) run(ctx context.Context, job Job, i Index, line string) error {
	args := append(append([]string(nil), e.Command...),
		"--entry-point", job.EntryPoint,
		"--index", strconv.FormatInt(int64(i), 10),
		"--output", job.Output)
	stderr := &reportWriter{r: NewLogReporter(ctx, job.EntryPoint, &e.Counters), ctx: ctx}
	defer stderr.flush()
	return cmdutil.RunIO(ctx, cmdutil.IO{
		Stdin:   strings.NewReader(line + "\n"),
		Stderr:  stderr,
		Environ: e.Environ,
	}, args...)
}

// reportWriter parses the report lines written by a worker process and logs everything else.
type reportWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
	r   Reporter
	ctx context.Context
}

func (w *reportWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			return len(p), nil
		}
		w.line(string(w.buf.Next(i + 1)))
	}
}

func (w *reportWriter) line(l string) {
	l = strings.TrimRight(l, "\r\n")
	if l == "" || ParseReport(l, w.r) {
		return
	}
	log.Debug(w.ctx, "worker output", zap.String("line", l))
}

func (w *reportWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.line(w.buf.String())
		w.buf.Reset()
	}
}

// RunWorker is the worker side of ProcessExecutor: it reads one task line from stdin and runs the
// entry point called name on it, reporting to stderr.
func RunWorker(ctx context.Context, f fsutil.FS, entryPoints EntryPoints, name string, i Index, outputDir string, stdin io.Reader, stderr io.Writer) error {
	fn, err := entryPoints.Get(name)
	if err != nil {
		return err
	}
	lines, err := ReadDescriptor(stdin)
	if err != nil {
		return err
	}
	if len(lines) != 1 {
		return errors.Errorf("worker expects exactly one task line on stdin, got %d", len(lines))
	}
	ctx = pctx.Child(ctx, "worker", pctx.WithFields(log.TaskIndex(int64(i))))
	return fn(ctx, f, Task{Index: i, Line: lines[0], OutputDir: outputDir}, NewStreamReporter(stderr))
}
