package fsutil

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// LocalScheme is the scheme of URIs served by the local filesystem.
const LocalScheme = "file"

// URI is a parsed scheme://authority/path string.  Unlike net/url it does no escaping, so that
// String returns exactly what was parsed for well formed inputs.
type URI struct {
	Scheme    string
	Authority string
	Path      string
}

// ParseURI parses s.  A string without a scheme is an error; use Sanitize for bare paths.
func ParseURI(s string) (URI, error) {
	scheme, rest, ok := splitScheme(s)
	if !ok {
		return URI{}, errors.Errorf("%q is not a URI: missing scheme", s)
	}
	u := URI{Scheme: scheme}
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			u.Authority, u.Path = rest[:i], rest[i:]
		} else {
			u.Authority = rest
		}
	} else {
		u.Path = rest
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// MustParseURI is ParseURI for URIs known to be valid.
func MustParseURI(s string) URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string {
	return u.Scheme + "://" + u.Authority + u.Path
}

// Base returns the last element of the path.
func (u URI) Base() string {
	return path.Base(u.Path)
}

// Dir returns the URI of the parent directory.
func (u URI) Dir() URI {
	u.Path = path.Dir(u.Path)
	return u
}

// Join appends elements to the path.
func (u URI) Join(elem ...string) URI {
	u.Path = path.Join(append([]string{u.Path}, elem...)...)
	return u
}

// Root returns the URI of the root of the filesystem u lives on.
func (u URI) Root() URI {
	u.Path = "/"
	return u
}

// HasScheme reports whether s starts with a URI scheme.
func HasScheme(s string) bool {
	_, _, ok := splitScheme(s)
	return ok
}

func splitScheme(s string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(s, ':')
	if i < 1 {
		return "", "", false
	}
	for j, c := range s[:i] {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", "", false
		}
	}
	return strings.ToLower(s[:i]), s[i+1:], true
}

// Sanitize turns a bare local path into an absolute file:// URI.  Strings that already carry a
// scheme are returned unchanged.
func Sanitize(p string) (string, error) {
	if HasScheme(p) {
		return p, nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.EnsureStack(err)
	}
	return LocalScheme + "://" + filepath.ToSlash(abs), nil
}

// IsLocal reports whether uri is served by the local filesystem.
func IsLocal(uri string) bool {
	u, err := ParseURI(uri)
	return err == nil && u.Scheme == LocalScheme
}

// Join is URI.Join on a string.
func Join(uri string, elem ...string) (string, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	return u.Join(elem...).String(), nil
}
