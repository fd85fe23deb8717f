package broute

import (
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/advdv/broute/argtype"
	"github.com/cockroachdb/errors"
)

// node of the route trie. Literal children are keyed by their text, parameter children by their type so
// "{id:int}" and "{n:int}" at the same depth share a node.
type node struct {
	argName  string
	literals map[string]*node
	params   map[reflect.Type]*node
	handlers map[string]*Binding
}

func newNode() *node {
	return &node{
		literals: map[string]*node{},
		params:   map[reflect.Type]*node{},
		handlers: map[string]*Binding{},
	}
}

// routeValue is a parameter extracted while walking the trie.
type routeValue struct {
	raw   string
	value any
}

// Router matches request paths against registered templates and invokes the bound handlers.
type Router struct {
	mu   sync.RWMutex
	reg  *argtype.Registry
	root *node
}

// NewRouter inits a router that converts parameters with reg, or the built-in types when reg is nil.
func NewRouter(reg *argtype.Registry) *Router {
	if reg == nil {
		reg = argtype.New()
	}

	return &Router{reg: reg, root: newNode()}
}

// Registry returns the type registry of the router.
func (rt *Router) Registry() *argtype.Registry { return rt.reg }

// AddRoute binds b to method and template. An empty method matches any method not bound explicitly.
// Registering the same method and shape again replaces the binding; the parameter takes the latest name.
func (rt *Router) AddRoute(method, template string, b *Binding) error {
	if b == nil || b.Handler == nil {
		return errors.New("binding without a handler")
	}

	segs, err := parseTemplate(rt.reg, template)
	if err != nil {
		return errors.Wrapf(err, "parse template %q", template)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := rt.root
	for _, seg := range segs {
		if !seg.isParam() {
			child, ok := n.literals[seg.literal]
			if !ok {
				child = newNode()
				n.literals[seg.literal] = child
			}

			n = child

			continue
		}

		child, ok := n.params[seg.desc.Type]
		if !ok {
			child = newNode()
			n.params[seg.desc.Type] = child
		}

		child.argName = seg.name
		n = child
	}

	n.handlers[strings.ToUpper(method)] = b

	return nil
}

// lookup walks the trie for path and returns the binding for method. A literal child always wins; otherwise
// the segment is parsed free-form and only the parameter child keyed by the resulting type is followed. There
// is no backtracking.
func (rt *Router) lookup(method, path string) (*Binding, map[string]routeValue, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	values := map[string]routeValue{}

	n := rt.root
	for _, raw := range splitPath(path) {
		seg, err := url.PathUnescape(raw)
		if err != nil {
			seg = raw
		}

		if child, ok := n.literals[seg]; ok {
			n = child
			continue
		}

		v, t, ok := rt.reg.TryParse(seg)
		if !ok {
			return nil, nil, false
		}

		child, ok := n.params[t]
		if !ok {
			return nil, nil, false
		}

		values[child.argName] = routeValue{raw: seg, value: v}
		n = child
	}

	b, ok := n.binding(method)

	return b, values, ok
}

// binding returns the binding of n for method, falling back to the any-method binding.
func (n *node) binding(method string) (*Binding, bool) {
	if b, ok := n.handlers[strings.ToUpper(method)]; ok {
		return b, true
	}

	b, ok := n.handlers[""]

	return b, ok
}
