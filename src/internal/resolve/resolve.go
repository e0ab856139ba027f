// Package resolve turns pathset entries into ordered lists of leaves.
//
// Order is deterministic: entries are resolved in the order given, and the children of every
// directory are visited sorted by name, depth first.  Names starting with "." or "_" are hidden
// and never visited.
package resolve

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
)

// Leaf is one resolved entry.  Root is the input entry that produced it.
type Leaf struct {
	URI  string
	Size int64
	Kind fsutil.Kind
	Root string
}

// ResolutionError is returned when an entry cannot be resolved.
type ResolutionError struct {
	URI    string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return "cannot resolve " + e.URI + ": " + e.Reason + ": " + e.Err.Error()
	}
	return "cannot resolve " + e.URI + ": " + e.Reason
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver resolves URIs on a filesystem.
type Resolver struct {
	fs fsutil.FS
}

// New returns a Resolver over f.
func New(f fsutil.FS) *Resolver {
	return &Resolver{fs: f}
}

// IsHidden reports whether name is skipped during traversal.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func (r *Resolver) children(ctx context.Context, dir string) ([]fsutil.FileInfo, error) {
	listing, err := r.fs.List(ctx, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	result := listing[:0]
	for _, c := range listing {
		if !IsHidden(c.Name) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func skip(ctx context.Context, fi fsutil.FileInfo) {
	log.Warn(ctx, "skipping item of unsupported kind", log.URI("uri", fi.URI), zap.Stringer("kind", fi.Kind))
}

func leafOf(fi fsutil.FileInfo, root string) Leaf {
	return Leaf{URI: fi.URI, Size: fi.Size, Kind: fi.Kind, Root: root}
}

// Expand resolves uri descending at most depth levels.  A file is returned as is.  With depth 0 a
// directory is returned as a single leaf; otherwise its children are returned, and those that are
// directories are expanded with depth-1.  At the last level directories are returned without
// being descended into.  Entries that are neither files nor directories are skipped.
func (r *Resolver) Expand(ctx context.Context, uri string, depth int) ([]Leaf, error) {
	if depth < 0 {
		return nil, errors.Errorf("expansion depth must be >= 0, got %d", depth)
	}
	fi, err := r.fs.Stat(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", uri)
	}
	var result []Leaf
	var expand func(fi fsutil.FileInfo, depth int) error
	expand = func(fi fsutil.FileInfo, depth int) error {
		switch {
		case fi.Kind == fsutil.KindFile, fi.Kind == fsutil.KindDir && depth == 0:
			result = append(result, leafOf(fi, uri))
		case fi.Kind == fsutil.KindDir:
			children, err := r.children(ctx, fi.URI)
			if err != nil {
				return err
			}
			for _, c := range children {
				if err := expand(c, depth-1); err != nil {
					return err
				}
			}
		default:
			skip(ctx, fi)
		}
		return nil
	}
	if err := expand(fi, depth); err != nil {
		return nil, err
	}
	return result, nil
}

// Walk returns every file under uri, at any depth.  If uri is a file it is the only leaf.
func (r *Resolver) Walk(ctx context.Context, uri string) ([]Leaf, error) {
	fi, err := r.fs.Stat(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", uri)
	}
	var result []Leaf
	var walk func(fi fsutil.FileInfo) error
	walk = func(fi fsutil.FileInfo) error {
		switch fi.Kind {
		case fsutil.KindFile:
			result = append(result, leafOf(fi, uri))
		case fsutil.KindDir:
			children, err := r.children(ctx, fi.URI)
			if err != nil {
				return err
			}
			for _, c := range children {
				if err := walk(c); err != nil {
					return err
				}
			}
		default:
			skip(ctx, fi)
		}
		return nil
	}
	if err := walk(fi); err != nil {
		return nil, err
	}
	return result, nil
}

// WalkAll walks each of uris in order and concatenates the results.
func (r *Resolver) WalkAll(ctx context.Context, uris []string) ([]Leaf, error) {
	var result []Leaf
	for _, u := range uris {
		leaves, err := r.Walk(ctx, u)
		if err != nil {
			return nil, err
		}
		result = append(result, leaves...)
	}
	return result, nil
}

// TotalSize sums the sizes of leaves.
func TotalSize(leaves []Leaf) int64 {
	var total int64
	for _, l := range leaves {
		total += l.Size
	}
	return total
}

// URIs returns the URIs of leaves.
func URIs(leaves []Leaf) []string {
	result := make([]string, len(leaves))
	for i, l := range leaves {
		result[i] = l.URI
	}
	return result
}
