package resolve

import (
	"context"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/fsutil"
)

// Glob returns []string{uri} if uri exists.  Otherwise uri is treated as a wildcard pattern and the
// matching URIs are returned, sorted, with the scheme and authority of uri.  A pattern matching
// nothing, or that cannot be listed, is a ResolutionError.
func (r *Resolver) Glob(ctx context.Context, uri string) ([]string, error) {
	ok, err := r.fs.Exists(ctx, uri)
	if err != nil {
		return nil, errors.EnsureStack(&ResolutionError{URI: uri, Reason: "could not check existence", Err: err})
	}
	if ok {
		return []string{uri}, nil
	}
	if !fsutil.IsGlob(uri) {
		return nil, errors.EnsureStack(&ResolutionError{URI: uri, Reason: "no such file or directory"})
	}
	matches, err := fsutil.Glob(ctx, r.fs, uri)
	if err != nil {
		return nil, errors.EnsureStack(&ResolutionError{URI: uri, Reason: "could not list pattern", Err: err})
	}
	if len(matches) == 0 {
		return nil, errors.EnsureStack(&ResolutionError{URI: uri, Reason: "pattern matched nothing"})
	}
	return matches, nil
}

// GlobAll expands each of uris in order and concatenates the results.
func (r *Resolver) GlobAll(ctx context.Context, uris []string) ([]string, error) {
	var result []string
	for _, u := range uris {
		matches, err := r.Glob(ctx, u)
		if err != nil {
			return nil, err
		}
		result = append(result, matches...)
	}
	return result, nil
}

// Mode selects how Qualify treats paths without a scheme.
type Mode int

const (
	// DefaultMode puts scheme-less paths on the default filesystem.
	DefaultMode Mode = iota
	// LocalMode forces every path onto the local filesystem.
	LocalMode
)

// Qualify returns the full URI for p.  In LocalMode p must be a local path or a file:// URI.  In
// DefaultMode a path without a scheme is resolved against defaultFS, a URI such as
// "hdfs://namenode:8020" or "file://"; relative paths only make sense on the local filesystem.
func Qualify(mode Mode, defaultFS, p string) (string, error) {
	if p == "" {
		return "", errors.New("blank path")
	}
	if mode == LocalMode {
		if fsutil.HasScheme(p) {
			u, err := fsutil.ParseURI(p)
			if err != nil {
				return "", err
			}
			if u.Scheme != fsutil.LocalScheme {
				return "", errors.Errorf("local mode was requested but %s has scheme %s", p, u.Scheme)
			}
			return u.String(), nil
		}
		return fsutil.Sanitize(p)
	}
	if fsutil.HasScheme(p) {
		return p, nil
	}
	if defaultFS == "" {
		return fsutil.Sanitize(p)
	}
	base, err := fsutil.ParseURI(defaultFS)
	if err != nil {
		return "", errors.Wrap(err, "default filesystem")
	}
	if base.Scheme == fsutil.LocalScheme {
		return fsutil.Sanitize(p)
	}
	if p[0] != '/' {
		return "", errors.Errorf("relative path %s cannot be resolved on %s", p, defaultFS)
	}
	return base.Root().Join(p).String(), nil
}
