// Package task is the protocol between a fan-out coordinator and the executor that runs its tasks.
//
// A job is a descriptor file with one task per line.  The executor runs the named entry point
// once per line, with no ordering or communication between tasks, and gives every task the
// 0-based Index of its line.  The Index is the only reliable key connecting an input line to what
// the task produced: outputs are named after it with OutputName.
//
// Jobs are map-only and must not use speculative execution; executors reject anything else.
package task

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
)

// Index is the position of a task in its descriptor file.
type Index int64

// Job describes a map-only job.
type Job struct {
	// TaskList is the URI of the descriptor file.
	TaskList string
	// EntryPoint names the function each task runs.
	EntryPoint string
	// TaskCount is the number of lines in TaskList.
	TaskCount int
	// Output is the directory URI task outputs are written to, if the entry point produces any.
	Output string
	// Reducers must be 0.
	Reducers int
	// Speculative must be false: two copies of one task would write the same byte range or
	// produce two outputs for one Index.
	Speculative bool
}

// Validate checks that j can be run.
func (j Job) Validate() error {
	switch {
	case j.TaskList == "":
		return errors.New("job has no task list")
	case j.EntryPoint == "":
		return errors.New("job has no entry point")
	case j.TaskCount < 0:
		return errors.Errorf("invalid task count %d", j.TaskCount)
	case j.Reducers != 0:
		return errors.Errorf("jobs are map-only, got %d reducers", j.Reducers)
	case j.Speculative:
		return errors.New("speculative execution is not supported")
	}
	return nil
}

// Executor runs jobs.  Submit blocks until every task has finished and returns an error if any
// task failed.  Executors do not retry.
type Executor interface {
	Submit(ctx context.Context, job Job) error
}

// Task is one line of a job, as seen by its entry point.
type Task struct {
	Index Index
	Line  string
	// OutputDir is Job.Output.
	OutputDir string
}

// OutputURI is the URI of this task's output with extension ext.
func (t Task) OutputURI(ext string) (string, error) {
	if t.OutputDir == "" {
		return "", errors.New("job has no output directory")
	}
	return fsutil.Join(t.OutputDir, OutputName(t.Index, ext))
}

// Reporter is the status channel from a running task to its executor.  Reports are advisory.
type Reporter interface {
	Status(msg string)
	Count(group, name string, n int64)
}

// EntryPoint is the function run for each task.
type EntryPoint func(ctx context.Context, f fsutil.FS, t Task, r Reporter) error

// EntryPoints maps entry point names to functions.
type EntryPoints map[string]EntryPoint

// Get returns the entry point called name.
func (e EntryPoints) Get(name string) (EntryPoint, error) {
	fn, ok := e[name]
	if !ok {
		return nil, errors.Errorf("unknown entry point %q", name)
	}
	return fn, nil
}

const outputPrefix = "part-"

var outputRegex = regexp.MustCompile(`^part-(\d{5,})(.*)$`)

// OutputName is the name of the output of task i: part-00000 followed by ext.
func OutputName(i Index, ext string) string {
	return fmt.Sprintf("%s%05d%s", outputPrefix, i, ext)
}

// ParseOutputName is the inverse of OutputName.
func ParseOutputName(name string) (Index, string, bool) {
	m := outputRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	i, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return Index(i), m[2], true
}
