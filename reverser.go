package broute

import (
	"net/url"
	"strings"

	"github.com/advdv/broute/argtype"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Reverser keeps track of named templates and allows building URLs.
type Reverser struct {
	reg  *argtype.Registry
	pats map[string][]segment
}

// NewReverser inits the reverser. Parameter types are resolved with reg, or the built-in types when nil.
func NewReverser(reg *argtype.Registry) *Reverser {
	if reg == nil {
		reg = argtype.New()
	}

	return &Reverser{reg: reg, pats: make(map[string][]segment)}
}

// Reverse substitutes vals, in order, for the parameters of the named template. Every value must parse as the
// type of its parameter.
func (r Reverser) Reverse(name string, vals ...string) (string, error) {
	segs, ok := r.pats[name]
	if !ok {
		return "", errors.Newf("no pattern named: %q, got: %v", name, lo.Keys(r.pats))
	}

	var b strings.Builder
	for _, seg := range segs {
		b.WriteByte('/')

		if !seg.isParam() {
			b.WriteString(url.PathEscape(seg.literal))
			continue
		}

		if len(vals) < 1 {
			return "", errors.Newf("not enough values to build %q", name)
		}

		if _, err := seg.desc.TryParse(vals[0]); err != nil {
			return "", errors.Wrapf(err, "value for parameter %q", seg.name)
		}

		b.WriteString(url.PathEscape(vals[0]))
		vals = vals[1:]
	}

	if len(vals) > 0 {
		return "", errors.Newf("too many values to build %q", name)
	}

	if b.Len() == 0 {
		return "/", nil
	}

	return b.String(), nil
}

// Named is a convenience method that panics if naming the template fails.
func (r Reverser) Named(name, str string) string {
	str, err := r.NamedPattern(name, str)
	if err != nil {
		panic("broute: " + err.Error())
	}

	return str
}

// NamedPattern will parse str as a route template while returning it as well.
func (r Reverser) NamedPattern(name, str string) (string, error) {
	if _, exists := r.pats[name]; exists {
		return str, errors.Newf("pattern with name %q already exists", name)
	}

	if strings.TrimSpace(str) == "" {
		return str, errors.New("failed to parse pattern: empty pattern")
	}

	segs, err := parseTemplate(r.reg, str)
	if err != nil {
		return str, errors.Wrap(err, "failed to parse pattern")
	}

	r.pats[name] = segs

	return str, nil
}
