package broute

import (
	"net/url"
	"strings"

	"github.com/advdv/broute/argtype"
	"github.com/cockroachdb/errors"
)

// segment of a route template. A nil desc marks a literal.
type segment struct {
	literal string
	name    string
	desc    *argtype.Descriptor
}

func (s segment) isParam() bool { return s.desc != nil }

// parseTemplate splits a template such as "/users/{id:int}/posts" into segments. Parameters without a type
// are strings. Empty segments are skipped.
func parseTemplate(reg *argtype.Registry, tmpl string) ([]segment, error) {
	parts := splitPath(tmpl)
	segs := make([]segment, 0, len(parts))

	for _, part := range parts {
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, errors.Newf("malformed segment %q", part)
			}

			lit, err := url.PathUnescape(part)
			if err != nil {
				return nil, errors.Wrapf(err, "segment %q", part)
			}

			segs = append(segs, segment{literal: lit})

			continue
		}

		if !strings.HasSuffix(part, "}") || strings.Count(part, "{") != 1 || strings.Count(part, "}") != 1 {
			return nil, errors.Newf("malformed parameter segment %q", part)
		}

		name, typ, hasType := strings.Cut(part[1:len(part)-1], ":")
		if name = strings.TrimSpace(name); name == "" {
			return nil, errors.Newf("parameter without a name in %q", part)
		}

		if !hasType {
			typ = "string"
		}

		desc, ok := reg.Lookup(strings.TrimSpace(typ))
		if !ok {
			return nil, errors.Wrapf(argtype.ErrUnknownType, "parameter %q has type %q", name, typ)
		}

		segs = append(segs, segment{name: name, desc: desc})
	}

	return segs, nil
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}
