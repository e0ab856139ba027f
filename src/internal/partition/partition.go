// Package partition splits resolved leaves into independent tasks for a fan-out job.
//
// Byte range tasks copy each leaf into its own disjoint range of one PreallocatedOutput.
// Transform tasks process each leaf into its own output, named after the leaf's path relative to
// the input entry that produced it.
package partition

import (
	"path"
	"strconv"
	"strings"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/resolve"
	"github.com/crs4/hadoop-galaxy/src/internal/task"
)

// TaskIndex is the position of a task in its descriptor file.
type TaskIndex = task.Index

// PreallocatedOutput is a file created at its full size before any byte range task runs.
//
// Range tasks write to it concurrently, each through its own handle and with no locking.  The
// result is only correct if the filesystem holding URI applies concurrent positioned writes to
// non-overlapping ranges independently.  Local POSIX filesystems do.  This is a precondition on
// the store and is not checked at runtime; ByteRanges checks instead that the ranges themselves
// are disjoint and cover [0, TotalSize).
type PreallocatedOutput struct {
	URI       string
	TotalSize int64
}

// ByteRangeTask copies SrcLength bytes of SrcURI, starting at SrcOffset, into DestURI at
// DestOffset.
type ByteRangeTask struct {
	Index      TaskIndex
	SrcURI     string
	SrcOffset  int64
	SrcLength  int64
	DestURI    string
	DestOffset int64
}

// ByteRangeArity is the number of fields of a byte range descriptor line.
const ByteRangeArity = 5

// Fields implements task.Record.
func (t ByteRangeTask) Fields() []string {
	return []string{
		t.SrcURI,
		strconv.FormatInt(t.SrcOffset, 10),
		strconv.FormatInt(t.SrcLength, 10),
		t.DestURI,
		strconv.FormatInt(t.DestOffset, 10),
	}
}

// ParseByteRangeTask parses line i of a byte range descriptor file.
func ParseByteRangeTask(i TaskIndex, line string) (ByteRangeTask, error) {
	fields, err := task.ParseLine(line, ByteRangeArity)
	if err != nil {
		return ByteRangeTask{}, err
	}
	t := ByteRangeTask{Index: i, SrcURI: fields[0], DestURI: fields[3]}
	for _, x := range []struct {
		dst  *int64
		name string
		s    string
	}{
		{&t.SrcOffset, "source offset", fields[1]},
		{&t.SrcLength, "source length", fields[2]},
		{&t.DestOffset, "destination offset", fields[4]},
	} {
		n, err := strconv.ParseInt(x.s, 10, 64)
		if err != nil {
			return ByteRangeTask{}, errors.Wrapf(err, "invalid %s in task line %q", x.name, line)
		}
		if n < 0 {
			return ByteRangeTask{}, errors.Errorf("negative %s in task line %q", x.name, line)
		}
		*x.dst = n
	}
	return t, nil
}

// ByteRanges assigns each leaf, in order, the destination range following the previous leaf's.
func ByteRanges(leaves []resolve.Leaf, dest string) (PreallocatedOutput, []ByteRangeTask, error) {
	tasks := make([]ByteRangeTask, len(leaves))
	var offset int64
	for i, l := range leaves {
		if l.Kind != fsutil.KindFile {
			return PreallocatedOutput{}, nil, errors.Errorf("%s is a %v, not a file", l.URI, l.Kind)
		}
		tasks[i] = ByteRangeTask{
			Index:      TaskIndex(i),
			SrcURI:     l.URI,
			SrcLength:  l.Size,
			DestURI:    dest,
			DestOffset: offset,
		}
		offset += l.Size
	}
	out := PreallocatedOutput{URI: dest, TotalSize: offset}
	if err := ValidateRanges(out, tasks); err != nil {
		return PreallocatedOutput{}, nil, err
	}
	return out, tasks, nil
}

// ValidateRanges checks that tasks, in order, write to out only, are indexed by position, and
// cover [0, out.TotalSize) with contiguous disjoint ranges.
func ValidateRanges(out PreallocatedOutput, tasks []ByteRangeTask) error {
	var next int64
	for i, t := range tasks {
		switch {
		case t.Index != TaskIndex(i):
			return errors.Errorf("task at position %d has index %d", i, t.Index)
		case t.DestURI != out.URI:
			return errors.Errorf("task %d writes to %s instead of %s", i, t.DestURI, out.URI)
		case t.SrcOffset < 0, t.SrcLength < 0:
			return errors.Errorf("task %d has a negative source range", i)
		case t.DestOffset != next:
			return errors.Errorf("task %d starts at %d, expected %d", i, t.DestOffset, next)
		}
		next += t.SrcLength
	}
	if next != out.TotalSize {
		return errors.Errorf("tasks cover %d bytes of %d", next, out.TotalSize)
	}
	return nil
}

// TransformTask processes InputRoot/RelPath into an output that is eventually renamed to
// OutputRoot/RelPath plus the extension added by the transform.
type TransformTask struct {
	Index      TaskIndex
	InputRoot  string
	OutputRoot string
	RelPath    string
}

// TransformArity is the number of fields of a transform descriptor line.
const TransformArity = 3

// Fields implements task.Record.
func (t TransformTask) Fields() []string {
	return []string{t.InputRoot, t.OutputRoot, t.RelPath}
}

// SrcURI is the URI of the input.
func (t TransformTask) SrcURI() (string, error) {
	return fsutil.Join(t.InputRoot, t.RelPath)
}

// TargetURI is the final URI of the output, with ext appended.
func (t TransformTask) TargetURI(ext string) (string, error) {
	return fsutil.Join(t.OutputRoot, t.RelPath+ext)
}

// ParseTransformTask parses line i of a transform descriptor file.
func ParseTransformTask(i TaskIndex, line string) (TransformTask, error) {
	fields, err := task.ParseLine(line, TransformArity)
	if err != nil {
		return TransformTask{}, err
	}
	if fields[2] == "" {
		return TransformTask{}, errors.Errorf("empty relative path in task line %q", line)
	}
	return TransformTask{Index: i, InputRoot: fields[0], OutputRoot: fields[1], RelPath: fields[2]}, nil
}

// Transforms returns one task per leaf, indexed by position.  A leaf found inside a directory
// entry is named by its path relative to that entry.  A leaf that is itself an entry is named by
// its base name, relative to its parent directory.
func Transforms(leaves []resolve.Leaf, outputRoot string) ([]TransformTask, error) {
	tasks := make([]TransformTask, len(leaves))
	for i, l := range leaves {
		root, rel, err := relativize(l)
		if err != nil {
			return nil, err
		}
		tasks[i] = TransformTask{Index: TaskIndex(i), InputRoot: root, OutputRoot: outputRoot, RelPath: rel}
	}
	return tasks, nil
}

func relativize(l resolve.Leaf) (string, string, error) {
	leaf, err := fsutil.ParseURI(l.URI)
	if err != nil {
		return "", "", err
	}
	root, err := fsutil.ParseURI(l.Root)
	if err != nil {
		return "", "", err
	}
	if leaf.Scheme != root.Scheme || leaf.Authority != root.Authority {
		return "", "", errors.Errorf("%s is not on the filesystem of %s", l.URI, l.Root)
	}
	leafPath, rootPath := path.Clean(leaf.Path), path.Clean(root.Path)
	if leafPath == rootPath {
		return leaf.Dir().String(), leaf.Base(), nil
	}
	rel, ok := strings.CutPrefix(leafPath, strings.TrimSuffix(rootPath, "/")+"/")
	if !ok {
		return "", "", errors.Errorf("%s is not under %s", l.URI, l.Root)
	}
	root.Path = rootPath
	return root.String(), rel, nil
}
