// Package pathset implements the pathset: an ordered list of URIs with a datatype tag and a free
// form comment, and its line oriented text format.
//
// A pathset file looks like
//
//	# Pathset	Version:0.0	DataType:fastq
//	# Copied from
//	# file:///data/run1
//	file:///data/run1/a.fastq
//	file:///data/run1/b.fastq
//
// Entry order is significant: when a pathset is concatenated it defines the byte order of the
// output.  A pathset handed to another stage must not be modified afterwards.
package pathset

import (
	"os"
	"strings"

	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
)

// Unknown is the datatype of a pathset that was never given one.
const Unknown = "Unknown"

// Pathset is an ordered list of URIs plus a datatype and a comment.
type Pathset struct {
	paths    []string
	Datatype string
	Comment  string
}

// New returns a pathset holding paths, normalized with Sanitize.
func New(paths ...string) (*Pathset, error) {
	p := &Pathset{Datatype: Unknown}
	if err := p.Append(paths...); err != nil {
		return nil, err
	}
	return p, nil
}

// Sanitize returns p unchanged if it is a URI, otherwise the absolute file:// URI of the local
// path p.  The normalization cannot be undone.
func Sanitize(p string) (string, error) {
	return fsutil.Sanitize(p)
}

// Append adds paths to the end of the pathset, normalized with Sanitize.
func (p *Pathset) Append(paths ...string) error {
	for _, path := range paths {
		uri, err := Sanitize(path)
		if err != nil {
			return err
		}
		p.paths = append(p.paths, uri)
	}
	return nil
}

// Paths returns a copy of the entries, in order.
func (p *Pathset) Paths() []string {
	return append([]string(nil), p.paths...)
}

// Len returns the number of entries.
func (p *Pathset) Len() int {
	return len(p.paths)
}

// DatatypeOrUnknown returns the datatype, or Unknown if it is empty.
func (p *Pathset) DatatypeOrUnknown() string {
	if p.Datatype == "" {
		return Unknown
	}
	return p.Datatype
}

// String joins the entries with the OS path list separator.
func (p *Pathset) String() string {
	return strings.Join(p.paths, string(os.PathListSeparator))
}
