package task

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
)

// Record is a task that can be written as a line of a descriptor file.
type Record interface {
	Fields() []string
}

// FormatLine joins fields with tabs.  Fields cannot contain tabs or newlines.
func FormatLine(fields []string) (string, error) {
	for _, f := range fields {
		if strings.ContainsAny(f, "\t\r\n") {
			return "", errors.Errorf("descriptor field %q contains a tab or newline", f)
		}
	}
	return strings.Join(fields, "\t"), nil
}

// ParseLine splits a descriptor line into exactly arity fields.
func ParseLine(line string, arity int) ([]string, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != arity {
		return nil, errors.Errorf("invalid task line: expected %d fields but found %d: %q", arity, len(fields), line)
	}
	return fields, nil
}

// WriteDescriptor writes one line per record to w and returns the number of lines written.
func WriteDescriptor[R Record](w io.Writer, records []R) (int, error) {
	bw := bufio.NewWriter(w)
	for i, r := range records {
		line, err := FormatLine(r.Fields())
		if err != nil {
			return i, errors.Wrapf(err, "task %d", i)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return i, errors.EnsureStack(err)
		}
	}
	return len(records), errors.EnsureStack(bw.Flush())
}

// WriteDescriptorFile writes records to uri on f.
func WriteDescriptorFile[R Record](ctx context.Context, f fsutil.FS, uri string, records []R) (_ int, retErr error) {
	w, err := f.Create(ctx, uri)
	if err != nil {
		return 0, errors.Wrapf(err, "create task list %s", uri)
	}
	defer errors.Close(&retErr, w, "close task list %s", uri)
	return WriteDescriptor(w, records)
}

// ReadDescriptor returns the lines of a descriptor file; line i is the task with Index i.
func ReadDescriptor(r io.Reader) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines, errors.EnsureStack(s.Err())
}

// ReadDescriptorFile reads the descriptor file at uri on f.
func ReadDescriptorFile(ctx context.Context, f fsutil.FS, uri string) (_ []string, retErr error) {
	r, err := f.Open(ctx, uri, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open task list %s", uri)
	}
	defer errors.Close(&retErr, r, "close task list %s", uri)
	return ReadDescriptor(r)
}
