package pathset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// File format constants.
const (
	Magic       = "# Pathset"
	Version     = "0.0"
	VersionTag  = "Version"
	DataTypeTag = "DataType"
)

const maxLineSize = 1 << 20

// FormatError is returned when a pathset file is malformed or has an unsupported version.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "pathset: " + e.Msg
}

func formatErrorf(format string, args ...any) error {
	return errors.EnsureStack(&FormatError{Msg: fmt.Sprintf(format, args...)})
}

func (p *Pathset) header() string {
	return strings.Join([]string{
		Magic,
		VersionTag + ":" + Version,
		DataTypeTag + ":" + p.DatatypeOrUnknown(),
	}, "\t")
}

// Write writes p in the pathset text format.  The datatype cannot contain tabs or newlines, the
// comment cannot contain carriage returns, and paths cannot contain either kind of line break.
func (p *Pathset) Write(w io.Writer) error {
	if strings.ContainsAny(p.Datatype, "\t\r\n") {
		return errors.Errorf("pathset datatype %q contains a tab or newline", p.Datatype)
	}
	if strings.Contains(p.Comment, "\r") {
		return errors.Errorf("pathset comment %q contains a carriage return", p.Comment)
	}
	for _, path := range p.paths {
		if strings.ContainsAny(path, "\r\n") {
			return errors.Errorf("pathset entry %q contains a line break", path)
		}
	}
	bw := bufio.NewWriter(w)
	lines := []string{p.header()}
	if p.Comment != "" {
		for _, c := range strings.Split(p.Comment, "\n") {
			lines = append(lines, "# "+c)
		}
	}
	lines = append(lines, p.paths...)
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return errors.EnsureStack(err)
		}
	}
	return errors.EnsureStack(bw.Flush())
}

func parseHeader(line string) (string, error) {
	if !strings.HasPrefix(line, Magic) {
		found := line
		if len(found) > 10 {
			found = found[:10] + "..."
		}
		return "", formatErrorf("unrecognized file format: expected %q at start of file, found %q", Magic, found)
	}
	fields := strings.Split(line, "\t")
	if fields[0] != Magic {
		return "", formatErrorf("unrecognized header %q", fields[0])
	}
	version, datatype := Version, Unknown
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			return "", formatErrorf("malformed header field %q", f)
		}
		switch k {
		case VersionTag:
			version = v
		case DataTypeTag:
			datatype = v
		}
	}
	if version != Version {
		return "", formatErrorf("incompatible version: found %q but expected %q", version, Version)
	}
	return datatype, nil
}

// Read parses a pathset.  Comment lines are the lines starting with "#" between the header and the
// first entry; blank lines are ignored; every other line is an entry, taken verbatim.
func Read(r io.Reader) (*Pathset, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, errors.EnsureStack(err)
		}
		return nil, formatErrorf("empty input")
	}
	datatype, err := parseHeader(strings.TrimSuffix(s.Text(), "\r"))
	if err != nil {
		return nil, err
	}
	p := &Pathset{Datatype: datatype}
	var comments []string
	for s.Scan() {
		line := strings.TrimSuffix(s.Text(), "\r")
		if line == "" {
			continue
		}
		if len(p.paths) == 0 && strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "# ") {
				comments = append(comments, line[2:])
			} else {
				comments = append(comments, line[1:])
			}
			continue
		}
		p.paths = append(p.paths, line)
	}
	if err := s.Err(); err != nil {
		return nil, errors.EnsureStack(err)
	}
	p.Comment = strings.Join(comments, "\n")
	return p, nil
}

// ReadFile reads the pathset file at the local path name.
func ReadFile(name string) (*Pathset, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	defer f.Close()
	p, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return p, nil
}

// WriteFile writes p to the local path name.
func (p *Pathset) WriteFile(name string) (retErr error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.EnsureStack(err)
	}
	defer errors.Close(&retErr, f, "close %s", name)
	return p.Write(f)
}
