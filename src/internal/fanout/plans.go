package fanout

import (
	"context"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/partition"
	"github.com/crs4/hadoop-galaxy/src/internal/pathset"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
	"github.com/crs4/hadoop-galaxy/src/internal/worker"
)

// JobOutputName is the name of the job output directory inside the scratch directory.
const JobOutputName = "job_output"

// DistCat concatenates the data of a pathset into one local file, with one byte range task per
// leaf.
type DistCat struct {
	inputs *pathset.Pathset
	output partition.PreallocatedOutput
}

var _ Plan = (*DistCat)(nil)

// NewDistCat returns the plan concatenating inputs into output, which must be a local path or
// file:// URI.
func NewDistCat(inputs *pathset.Pathset, output string) (*DistCat, error) {
	output, err := fsutil.Sanitize(output)
	if err != nil {
		return nil, err
	}
	if !fsutil.IsLocal(output) {
		return nil, errors.Errorf("output %s must be on the locally mounted filesystem", output)
	}
	if inputs.Len() == 0 {
		return nil, errors.New("cannot concatenate an empty pathset")
	}
	return &DistCat{inputs: inputs, output: partition.PreallocatedOutput{URI: output}}, nil
}

func (d *DistCat) EntryPoint() string  { return worker.CatPathsEntryPoint }
func (d *DistCat) Destination() string { return d.output.URI }

// Output is the pre-sized output, once Tasks has run.
func (d *DistCat) Output() partition.PreallocatedOutput { return d.output }

func (d *DistCat) Tasks(ctx context.Context, f fsutil.FS) ([]task.Record, error) {
	leaves, err := resolve.New(f).WalkAll(ctx, d.inputs.Paths())
	if err != nil {
		return nil, err
	}
	for _, l := range leaves {
		if l.URI == d.output.URI {
			return nil, errors.Errorf("output %s is also an input", d.output.URI)
		}
	}
	out, tasks, err := partition.ByteRanges(leaves, d.output.URI)
	if err != nil {
		return nil, err
	}
	d.output = out
	log.Info(ctx, "analysed input paths", zap.Int("files", len(leaves)), log.Bytes("total", out.TotalSize))
	return records(tasks), nil
}

// Prepare creates the output at its full size.
func (d *DistCat) Prepare(ctx context.Context, f fsutil.FS) error {
	wfs, ok := f.(fsutil.WriterAtFS)
	if !ok {
		return errors.Wrapf(fsutil.ErrUnsupported, "positioned writes to %s", d.output.URI)
	}
	log.Info(ctx, "creating output file", log.URI("output", d.output.URI), log.Bytes("size", d.output.TotalSize))
	return wfs.Truncate(ctx, d.output.URI, d.output.TotalSize)
}

func (d *DistCat) JobOutput(scratch string) (string, error) {
	return fsutil.Join(scratch, JobOutputName)
}

// Verify checks that the output still has the expected size.
func (d *DistCat) Verify(ctx context.Context, f fsutil.FS, job task.Job) error {
	fi, err := f.Stat(ctx, d.output.URI)
	if err != nil {
		return errors.Wrapf(err, "stat output %s", d.output.URI)
	}
	if fi.Size != d.output.TotalSize {
		return errors.Errorf("output %s has size %d, expected %d", d.output.URI, fi.Size, d.output.TotalSize)
	}
	return nil
}

// Reconcile does nothing: tasks write directly to the output.
func (d *DistCat) Reconcile(ctx context.Context, f fsutil.FS, job task.Job) error {
	return nil
}

func (d *DistCat) Discard(ctx context.Context, f fsutil.FS) error {
	return f.Remove(ctx, d.output.URI, false)
}

// TextZipper gzips every file under its inputs into an output directory, preserving the
// directory structure, with one transform task per file.
type TextZipper struct {
	inputs []string
	output string
	ext    string
}

var _ Plan = (*TextZipper)(nil)

// NewTextZipper returns the plan compressing inputs into the directory output.
func NewTextZipper(inputs []string, output string) (*TextZipper, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no input paths")
	}
	z := &TextZipper{ext: worker.TextZipperExtension}
	var err error
	if z.output, err = fsutil.Sanitize(output); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		in, err := fsutil.Sanitize(in)
		if err != nil {
			return nil, err
		}
		z.inputs = append(z.inputs, in)
	}
	sort.Strings(z.inputs)
	return z, nil
}

func (z *TextZipper) EntryPoint() string  { return worker.TextZipperEntryPoint }
func (z *TextZipper) Destination() string { return z.output }

func (z *TextZipper) Tasks(ctx context.Context, f fsutil.FS) ([]task.Record, error) {
	exists, err := f.Exists(ctx, z.output)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Errorf("output path %s already exists", z.output)
	}
	var missing []string
	for _, in := range z.inputs {
		ok, err := f.Exists(ctx, in)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, in)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("%d input paths don't exist: %s", len(missing), strings.Join(missing, ", "))
	}
	leaves, err := resolve.New(f).WalkAll(ctx, z.inputs)
	if err != nil {
		return nil, err
	}
	tasks, err := partition.Transforms(leaves, z.output)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "compressing files", zap.Int("files", len(tasks)), log.URI("output", z.output))
	return records(tasks), nil
}

// Prepare creates the output directory.  Tasks write to the job output in scratch and are moved
// into it by Reconcile.
func (z *TextZipper) Prepare(ctx context.Context, f fsutil.FS) error {
	return f.Mkdir(ctx, z.output)
}

func (z *TextZipper) JobOutput(scratch string) (string, error) {
	return fsutil.Join(scratch, JobOutputName)
}

// outputs returns the task outputs in dir by index, and their common extension.
func (z *TextZipper) outputs(ctx context.Context, f fsutil.FS, dir string) (map[task.Index]string, string, error) {
	listing, err := f.List(ctx, dir)
	if err != nil {
		return nil, "", errors.Wrapf(err, "list %s", dir)
	}
	result := make(map[task.Index]string)
	ext, found := "", false
	for _, fi := range listing {
		i, e, ok := task.ParseOutputName(fi.Name)
		if !ok || fi.Kind != fsutil.KindFile {
			continue
		}
		if found && e != ext {
			return nil, "", &ReconciliationError{Index: i, URI: fi.URI, Reason: "extension differs from " + ext}
		}
		ext, found = e, true
		result[i] = fi.URI
	}
	return result, ext, nil
}

// Verify checks that there is one output per task.
func (z *TextZipper) Verify(ctx context.Context, f fsutil.FS, job task.Job) error {
	outputs, _, err := z.outputs(ctx, f, job.Output)
	if err != nil {
		return err
	}
	if len(outputs) != job.TaskCount {
		return errors.Errorf("found %d task outputs in %s, expected %d", len(outputs), job.Output, job.TaskCount)
	}
	return nil
}

// Reconcile moves the output of task i from the job output to the output root joined with the
// relative path on line i of the task list, plus the extension added by the transform.
func (z *TextZipper) Reconcile(ctx context.Context, f fsutil.FS, job task.Job) error {
	outputs, ext, err := z.outputs(ctx, f, job.Output)
	if err != nil {
		return err
	}
	if ext != z.ext {
		log.Info(ctx, "transform added an unexpected extension", zap.String("extension", ext))
	}
	lines, err := task.ReadDescriptorFile(ctx, f, job.TaskList)
	if err != nil {
		return err
	}
	for n, line := range lines {
		i := task.Index(n)
		tt, err := partition.ParseTransformTask(i, line)
		if err != nil {
			return err
		}
		src, ok := outputs[i]
		if !ok {
			return &ReconciliationError{Index: i, URI: task.OutputName(i, ext), Reason: "task output is missing"}
		}
		dst, err := tt.TargetURI(ext)
		if err != nil {
			return err
		}
		exists, err := f.Exists(ctx, dst)
		if err != nil {
			return err
		}
		if exists {
			return &ReconciliationError{Index: i, URI: dst, Reason: "target already exists"}
		}
		if dir := path.Dir(tt.RelPath); dir != "." {
			parent, err := fsutil.Join(tt.OutputRoot, dir)
			if err != nil {
				return err
			}
			if err := f.Mkdir(ctx, parent); err != nil {
				return errors.Wrapf(err, "create %s", parent)
			}
		}
		log.Debug(ctx, "renaming task output", log.TaskIndex(int64(i)), log.URI("src", src), log.URI("dst", dst))
		if err := f.Rename(ctx, src, dst); err != nil {
			return errors.Wrapf(err, "rename %s to %s", src, dst)
		}
	}
	return nil
}

func (z *TextZipper) Discard(ctx context.Context, f fsutil.FS) error {
	return f.Remove(ctx, z.output, true)
}

func records[R task.Record](rs []R) []task.Record {
	result := make([]task.Record, len(rs))
	for i, r := range rs {
		result[i] = r
	}
	return result
}
