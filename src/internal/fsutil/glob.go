package fsutil

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strings"

	globlib "github.com/pachyderm/ohmyglob"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

var globRegex = regexp.MustCompile(`[*?[\]{}!()@+^]`)

func globLiteralPrefix(glob string) string {
	idx := globRegex.FindStringIndex(glob)
	if idx == nil {
		return glob
	}
	return glob[:idx[0]]
}

// IsGlob reports whether p contains glob metacharacters.
func IsGlob(p string) bool {
	return globRegex.MatchString(p)
}

// Glob returns the URIs on f matching the path of pattern, sorted.  The results always carry the
// scheme and authority of pattern.  Only the directories under the literal prefix of the pattern
// are listed, and recursion stops at the pattern's depth unless it contains "**".
func Glob(ctx context.Context, f FS, pattern string) ([]string, error) {
	u, err := ParseURI(pattern)
	if err != nil {
		return nil, err
	}
	glob := path.Clean(u.Path)
	g, err := globlib.Compile(glob, '/')
	if err != nil {
		return nil, errors.Wrapf(err, "compile glob %s", pattern)
	}
	prefix := globLiteralPrefix(glob)
	baseDir := prefix[:strings.LastIndex(prefix, "/")+1]
	maxDepth := strings.Count(glob[len(baseDir):], "/")
	if strings.Contains(glob, "**") {
		maxDepth = -1
	}
	root := u
	root.Path = baseDir
	if ok, err := f.Exists(ctx, root.String()); err != nil || !ok {
		return nil, err
	}
	var result []string
	var walk func(dir URI, depth int) error
	walk = func(dir URI, depth int) error {
		children, err := f.List(ctx, dir.String())
		if err != nil {
			return err
		}
		for _, c := range children {
			child := dir.Join(c.Name)
			if g.Match(child.Path) {
				result = append(result, URI{Scheme: u.Scheme, Authority: u.Authority, Path: child.Path}.String())
			}
			if c.Kind == KindDir && (maxDepth < 0 || depth < maxDepth) {
				if err := walk(child, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	sort.Strings(result)
	return result, nil
}
