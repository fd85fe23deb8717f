// Package argtype keeps the set of value types that route parameters and handler arguments can be
// converted to. Every type is described by a parse function and a set of case-insensitive aliases that
// route templates refer to, e.g. "{id:int}". Descriptors are ordered by priority: the most recently
// registered descriptor is tried first when a raw value is parsed without a declared type.
package argtype

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrUnknownType is returned when no descriptor is registered for a type or alias.
var ErrUnknownType = errors.New("unknown argument type")

// ParseFunc parses the raw textual form of an argument.
type ParseFunc func(raw string) (any, error)

// Descriptor describes a single argument type.
type Descriptor struct {
	Type    reflect.Type
	Parse   ParseFunc
	Aliases []string
}

// Names returns the lower-cased aliases of the descriptor, including the bare name of the Go type.
func (d *Descriptor) Names() []string {
	names := make([]string, 0, len(d.Aliases)+1)
	for _, a := range d.Aliases {
		names = append(names, strings.ToLower(a))
	}

	if n := d.Type.Name(); n != "" {
		names = append(names, strings.ToLower(n))
	}

	return lo.Uniq(names)
}

// TryParse runs the parse function, turning a panic into an error.
func (d *Descriptor) TryParse(raw string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Newf("parser for %s panicked: %v", d.Type, r)
		}
	}()

	return d.Parse(raw)
}

// Registry holds descriptors in ascending priority.
type Registry struct {
	mu     sync.RWMutex
	descs  []*Descriptor
	byName map[string]*Descriptor
	byType map[reflect.Type]*Descriptor
}

// New inits a registry with the built-in types. From lowest to highest priority: string, uuid, float64, int
// and bool.
func New() *Registry {
	r := &Registry{
		byName: map[string]*Descriptor{},
		byType: map[reflect.Type]*Descriptor{},
	}

	RegisterType(r, func(s string) (string, error) { return s, nil }, "str", "string")
	RegisterType(r, uuid.Parse, "guid", "uuid")
	RegisterType(r, parseFloat, "float", "double")
	RegisterType(r, strconv.Atoi, "int", "integer")
	RegisterType(r, parseBool, "bool", "boolean")

	return r
}

// Register adds the descriptor for type t. A descriptor that already exists for t is replaced and the new one
// always receives the highest priority.
func (r *Registry) Register(t reflect.Type, parse ParseFunc, aliases ...string) *Descriptor {
	if t == nil || parse == nil {
		panic("argtype: type and parse function are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	desc := &Descriptor{Type: t, Parse: parse, Aliases: aliases}
	r.descs = append(lo.Reject(r.descs, func(d *Descriptor, _ int) bool {
		return d.Type == t
	}), desc)

	r.byType[t] = desc
	r.byName = make(map[string]*Descriptor, len(r.byName)+len(aliases))
	for _, d := range r.descs {
		for _, n := range d.Names() {
			r.byName[n] = d
		}
	}

	return desc
}

// RegisterType is a typed variant of [Registry.Register].
func RegisterType[T any](r *Registry, parse func(string) (T, error), aliases ...string) *Descriptor {
	return r.Register(reflect.TypeFor[T](), func(raw string) (any, error) {
		v, err := parse(raw)
		if err != nil {
			return nil, err
		}

		return v, nil
	}, aliases...)
}

// Lookup returns the descriptor for a case-insensitive alias.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byName[strings.ToLower(name)]

	return d, ok
}

// LookupType returns the descriptor for type t.
func (r *Registry) LookupType(t reflect.Type) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byType[t]

	return d, ok
}

// Descending returns the descriptors from highest to lowest priority.
func (r *Registry) Descending() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Reverse(append([]*Descriptor(nil), r.descs...))
}

// TryParse parses raw with the first descriptor, in priority order, that accepts it. As long as the string
// type is registered this never fails.
func (r *Registry) TryParse(raw string) (any, reflect.Type, bool) {
	for _, d := range r.Descending() {
		if v, err := d.TryParse(raw); err == nil {
			return v, d.Type, true
		}
	}

	return nil, nil, false
}

// ParseAs parses raw as exactly type t.
func (r *Registry) ParseAs(t reflect.Type, raw string) (any, error) {
	d, ok := r.LookupType(t)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%v", t)
	}

	v, err := d.TryParse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %q as %v", raw, t)
	}

	return v, nil
}

// Parse is a typed variant of [Registry.ParseAs].
func Parse[T any](r *Registry, raw string) (T, error) {
	var zero T

	v, err := r.ParseAs(reflect.TypeFor[T](), raw)
	if err != nil {
		return zero, err
	}

	tv, ok := v.(T)
	if !ok {
		return zero, errors.Newf("parser for %T returned %T", zero, v)
	}

	return tv, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Newf("not a finite number: %q", s)
	}

	return f, nil
}

func parseBool(s string) (bool, error) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	default:
		return false, errors.Newf("not a boolean: %q", s)
	}
}
