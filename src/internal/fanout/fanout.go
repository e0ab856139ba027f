// Package fanout runs map-only jobs: it plans independent tasks over a set of inputs, stages
// them for an executor, waits for the executor, and reconciles what the tasks produced.
//
// A Coordinator moves through
//
//	Idle -> Planning -> Staging -> Submitted -> Reconciling -> Done
//
// and to Failed on any error.  It is used for exactly one job.  The scratch directory created
// during Staging is removed in both Done and Failed.
package fanout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
	"github.com/crs4/hadoop-galaxy/src/internal/uuid"
)

// State is the state of a Coordinator.
type State int

const (
	Idle State = iota
	Planning
	Staging
	Submitted
	Reconciling
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Planning:
		return "planning"
	case Staging:
		return "staging"
	case Submitted:
		return "submitted"
	case Reconciling:
		return "reconciling"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TaskListName is the name of the descriptor file in the scratch directory.
const TaskListName = "tasks"

// JobExecutionError is returned when the executor fails, or reports success without producing
// the expected outputs.
type JobExecutionError struct {
	EntryPoint string
	Err        error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("%s job failed: %v", e.EntryPoint, e.Err)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// ReconciliationError is returned when the output of a task cannot be moved to its final place.
type ReconciliationError struct {
	Index  task.Index
	URI    string
	Reason string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciling task %d: %s: %s", e.Index, e.URI, e.Reason)
}

// Plan is the job-specific part of a fan-out job.
type Plan interface {
	// EntryPoint is the worker entry point run for every task.
	EntryPoint() string
	// Destination is the URI of the job's final output.
	Destination() string
	// Tasks resolves the inputs and returns the descriptor records, in task index order.
	Tasks(ctx context.Context, f fsutil.FS) ([]task.Record, error)
	// Prepare creates what tasks expect to exist before they run.
	Prepare(ctx context.Context, f fsutil.FS) error
	// JobOutput is the directory tasks write their outputs to.
	JobOutput(scratch string) (string, error)
	// Verify checks the outputs of a job the executor reported successful.
	Verify(ctx context.Context, f fsutil.FS, job task.Job) error
	// Reconcile moves task outputs to their final place.
	Reconcile(ctx context.Context, f fsutil.FS, job task.Job) error
	// Discard removes a partial destination after a failure.
	Discard(ctx context.Context, f fsutil.FS) error
}

// Coordinator runs one Plan on an Executor.
type Coordinator struct {
	fs       fsutil.FS
	executor task.Executor
	plan     Plan
	// ScratchRoot is where the scratch directory is created.  It defaults to the parent
	// directory of the plan's destination, and must be visible to the executor's workers.
	ScratchRoot string

	state    State
	scratch  string
	prepared bool
}

// New returns an Idle coordinator.
func New(f fsutil.FS, executor task.Executor, plan Plan) *Coordinator {
	return &Coordinator{fs: f, executor: executor, plan: plan}
}

// State is the current state.
func (c *Coordinator) State() State {
	return c.state
}

// Scratch is the URI of the scratch directory, once Staging has started.
func (c *Coordinator) Scratch() string {
	return c.scratch
}

func (c *Coordinator) transition(ctx context.Context, s State) {
	log.Debug(ctx, "fan-out state transition", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
}

// Run runs the job to completion.  It blocks for as long as the executor does.
func (c *Coordinator) Run(ctx context.Context) (retErr error) {
	if c.state != Idle {
		return errors.Errorf("coordinator is %v; it runs a single job", c.state)
	}
	ctx, end := log.SpanContextL(ctx, "fanout", log.InfoLevel, zap.String("entryPoint", c.plan.EntryPoint()), log.URI("dest", c.plan.Destination()))
	defer end(log.Errorp(&retErr))
	defer func() {
		if retErr != nil {
			c.fail(ctx, &retErr)
			return
		}
		c.cleanup(ctx, &retErr)
		c.transition(ctx, Done)
	}()

	c.transition(ctx, Planning)
	records, err := c.plan.Tasks(ctx, c.fs)
	if err != nil {
		return err
	}
	log.Info(ctx, "job planned", zap.Int("tasks", len(records)))

	c.transition(ctx, Staging)
	job, err := c.stage(ctx, records)
	if err != nil {
		return err
	}

	c.transition(ctx, Submitted)
	log.Info(ctx, "submitting job", zap.String("taskList", job.TaskList), zap.Int("tasks", job.TaskCount))
	if err := c.executor.Submit(ctx, job); err != nil {
		return &JobExecutionError{EntryPoint: job.EntryPoint, Err: err}
	}
	if err := c.plan.Verify(ctx, c.fs, job); err != nil {
		return &JobExecutionError{EntryPoint: job.EntryPoint, Err: err}
	}

	c.transition(ctx, Reconciling)
	return c.plan.Reconcile(ctx, c.fs, job)
}

func (c *Coordinator) scratchRoot() (string, error) {
	if c.ScratchRoot != "" {
		return c.ScratchRoot, nil
	}
	u, err := fsutil.ParseURI(c.plan.Destination())
	if err != nil {
		return "", err
	}
	return u.Dir().String(), nil
}

func (c *Coordinator) stage(ctx context.Context, records []task.Record) (task.Job, error) {
	root, err := c.scratchRoot()
	if err != nil {
		return task.Job{}, err
	}
	scratch, err := fsutil.Join(root, uuid.New())
	if err != nil {
		return task.Job{}, err
	}
	if err := c.fs.Mkdir(ctx, scratch); err != nil {
		return task.Job{}, errors.Wrapf(err, "create scratch directory %s", scratch)
	}
	c.scratch = scratch
	log.Debug(ctx, "created scratch directory", log.URI("scratch", scratch))
	taskList, err := fsutil.Join(scratch, TaskListName)
	if err != nil {
		return task.Job{}, err
	}
	n, err := task.WriteDescriptorFile(ctx, c.fs, taskList, records)
	if err != nil {
		return task.Job{}, err
	}
	output, err := c.plan.JobOutput(scratch)
	if err != nil {
		return task.Job{}, err
	}
	if err := c.fs.Mkdir(ctx, output); err != nil {
		return task.Job{}, errors.Wrapf(err, "create job output directory %s", output)
	}
	if err := c.plan.Prepare(ctx, c.fs); err != nil {
		return task.Job{}, errors.Wrap(err, "prepare job output")
	}
	c.prepared = true
	return task.Job{
		TaskList:   taskList,
		EntryPoint: c.plan.EntryPoint(),
		TaskCount:  n,
		Output:     output,
	}, nil
}

func (c *Coordinator) fail(ctx context.Context, retErr *error) {
	c.transition(ctx, Failed)
	if c.prepared {
		if err := c.plan.Discard(ctx, c.fs); err != nil {
			log.Error(ctx, "could not remove partial output", log.URI("dest", c.plan.Destination()), zap.Error(err))
			*retErr = errors.WithSuppressed(*retErr, err)
		}
	}
	c.cleanup(ctx, retErr)
}

// cleanup removes the scratch directory.  A failure is attached to *retErr if the job failed, and
// only logged otherwise.
func (c *Coordinator) cleanup(ctx context.Context, retErr *error) {
	if c.scratch == "" {
		return
	}
	log.Debug(ctx, "removing scratch directory", log.URI("scratch", c.scratch))
	if err := c.fs.Remove(ctx, c.scratch, true); err != nil {
		log.Error(ctx, "could not remove scratch directory", log.URI("scratch", c.scratch), zap.Error(err))
		if *retErr != nil {
			*retErr = errors.WithSuppressed(*retErr, errors.Wrapf(err, "remove scratch directory %s", c.scratch))
		}
	}
}
