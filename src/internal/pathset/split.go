package pathset

import (
	"regexp"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// CompileSplitExpr compiles expr so that it must match from the start of a path, and also at the
// end if anchorEnd is set.
func CompileSplitExpr(expr string, anchorEnd bool) (*regexp.Regexp, error) {
	full := "^(?:" + expr + ")"
	if anchorEnd {
		full += "$"
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, errors.Wrapf(err, "compile regular expression %q", expr)
	}
	return re, nil
}

// Split partitions the leaves of p into the paths matching re and those that do not.  expand turns
// one entry into its leaves; a nil expand uses the entries as they are.  Both results inherit the
// datatype of p and keep the order of the leaves.
func Split(p *Pathset, re *regexp.Regexp, expand func(uri string) ([]string, error)) (match, noMatch *Pathset, _ error) {
	match = &Pathset{Datatype: p.Datatype}
	noMatch = &Pathset{Datatype: p.Datatype}
	for _, entry := range p.paths {
		leaves := []string{entry}
		if expand != nil {
			var err error
			if leaves, err = expand(entry); err != nil {
				return nil, nil, err
			}
		}
		for _, leaf := range leaves {
			target := noMatch
			if re.MatchString(leaf) {
				target = match
			}
			if err := target.Append(leaf); err != nil {
				return nil, nil, err
			}
		}
	}
	return match, noMatch, nil
}
