// Package types implements the bounded type lattice the checker infers
// over: `Unknown < {Int, Float, Bool, Str, Bytes, None} ∪ {List<T>,
// Tuple<T1..Tn>, Dict<K,V>, Set<T>, Object<ClassId>, Callable(sig),
// Union<T1..Tn>, Error} < Any`. Joins are used at control-flow merges;
// meets at `isinstance` narrowing. The lattice is finite and already
// closed, so no unification variable ever needs to escape a single
// function body: every variable reaching the emitter ends up with a
// concrete type or an explicit Union.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags which lattice member a Type is.
type Kind int

const (
	KUnknown Kind = iota
	KInt
	KFloat
	KBool
	KStr
	KBytes
	KNone
	KList
	KTuple
	KDict
	KSet
	KObject
	KCallable
	KUnion
	KError
	KAny
)

func (k Kind) String() string {
	switch k {
	case KUnknown:
		return "Unknown"
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KStr:
		return "Str"
	case KBytes:
		return "Bytes"
	case KNone:
		return "None"
	case KList:
		return "List"
	case KTuple:
		return "Tuple"
	case KDict:
		return "Dict"
	case KSet:
		return "Set"
	case KObject:
		return "Object"
	case KCallable:
		return "Callable"
	case KUnion:
		return "Union"
	case KError:
		return "Error"
	case KAny:
		return "Any"
	}
	return "?"
}

// Type is one node of the lattice. Most Kinds only populate a subset of the
// fields below; see the constructors for the canonical shape of each.
type Type struct {
	Kind    Kind
	Elem    *Type   // List<T>, Set<T>
	Elems   []*Type // Tuple<T1..Tn>
	Key     *Type   // Dict key
	Value   *Type   // Dict value
	ClassID string  // Object<ClassId>
	Params  []*Type // Callable params
	Ret     *Type   // Callable return
	Options []*Type // Union members, sorted+deduped by String()
}

// Canonical singletons for the primitive Kinds.
var (
	Unknown = &Type{Kind: KUnknown}
	Int     = &Type{Kind: KInt}
	Float   = &Type{Kind: KFloat}
	Bool    = &Type{Kind: KBool}
	Str     = &Type{Kind: KStr}
	Bytes   = &Type{Kind: KBytes}
	None    = &Type{Kind: KNone}
	ErrorT  = &Type{Kind: KError}
	Any     = &Type{Kind: KAny}
)

func List(elem *Type) *Type           { return &Type{Kind: KList, Elem: elem} }
func SetOf(elem *Type) *Type          { return &Type{Kind: KSet, Elem: elem} }
func Tuple(elems ...*Type) *Type      { return &Type{Kind: KTuple, Elems: elems} }
func Dict(key, value *Type) *Type     { return &Type{Kind: KDict, Key: key, Value: value} }
func Object(classID string) *Type     { return &Type{Kind: KObject, ClassID: classID} }
func Callable(ret *Type, params ...*Type) *Type {
	return &Type{Kind: KCallable, Params: params, Ret: ret}
}

// Union builds a deduplicated, sorted Union type. A Union of zero options
// is Unknown; a Union of one option collapses to that option.
func Union(options ...*Type) *Type {
	seen := map[string]*Type{}
	for _, o := range options {
		if o == nil {
			continue
		}
		if o.Kind == KUnion {
			for _, oo := range o.Options {
				seen[oo.String()] = oo
			}
			continue
		}
		seen[o.String()] = o
	}
	if len(seen) == 0 {
		return Unknown
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 1 {
		return seen[keys[0]]
	}
	opts := make([]*Type, len(keys))
	for i, k := range keys {
		opts[i] = seen[k]
	}
	return &Type{Kind: KUnion, Options: opts}
}

func (t *Type) String() string {
	if t == nil {
		return "Unknown"
	}
	switch t.Kind {
	case KList:
		return fmt.Sprintf("List<%s>", t.Elem.String())
	case KSet:
		return fmt.Sprintf("Set<%s>", t.Elem.String())
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("Tuple<%s>", strings.Join(parts, ","))
	case KDict:
		return fmt.Sprintf("Dict<%s,%s>", t.Key.String(), t.Value.String())
	case KObject:
		return fmt.Sprintf("Object<%s>", t.ClassID)
	case KCallable:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("Callable(%s)->%s", strings.Join(parts, ","), t.Ret.String())
	case KUnion:
		parts := make([]string, len(t.Options))
		for i, o := range t.Options {
			parts[i] = o.String()
		}
		return fmt.Sprintf("Union<%s>", strings.Join(parts, ","))
	default:
		return t.Kind.String()
	}
}

// Equal is structural equality over the lattice (string comparison is
// sufficient since String() is canonical for every Kind).
func Equal(a, b *Type) bool { return a.String() == b.String() }

// Join computes the least upper bound of a and b, used at control-flow
// merges. Joining two different concrete types (other than a
// matching structural shape) produces a Union; joining with Unknown yields
// the other operand; joining with Any always yields Any.
func Join(a, b *Type) *Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Kind == KAny || b.Kind == KAny {
		return Any
	}
	if a.Kind == KUnknown {
		return b
	}
	if b.Kind == KUnknown {
		return a
	}
	if Equal(a, b) {
		return a
	}
	if a.Kind == KList && b.Kind == KList {
		return List(Join(a.Elem, b.Elem))
	}
	if a.Kind == KSet && b.Kind == KSet {
		return SetOf(Join(a.Elem, b.Elem))
	}
	if a.Kind == KDict && b.Kind == KDict {
		return Dict(Join(a.Key, b.Key), Join(a.Value, b.Value))
	}
	return Union(a, b)
}

// Meet computes the greatest lower bound, used for `isinstance(x, T)`
// narrowing on the true branch (current ∩ T). Meeting disjoint concrete
// types collapses to Error (an unreachable narrowing -- the emitter never
// sees this because dead branches are never taken at runtime, but it is a
// well-defined lattice element rather than a panic).
func Meet(a, b *Type) *Type {
	if a == nil || a.Kind == KUnknown || a.Kind == KAny {
		return b
	}
	if b == nil || b.Kind == KUnknown || b.Kind == KAny {
		return a
	}
	if Equal(a, b) {
		return a
	}
	if a.Kind == KUnion {
		for _, o := range a.Options {
			if Equal(o, b) {
				return b
			}
		}
	}
	if b.Kind == KUnion {
		for _, o := range b.Options {
			if Equal(o, a) {
				return a
			}
		}
	}
	return ErrorT
}

// Without computes current \ T, used for the false branch of an
// `isinstance` narrowing: if current is a Union, T's member is removed;
// otherwise current is unaffected (narrowing a non-union on its negative
// branch learns nothing new).
func Without(current, t *Type) *Type {
	if current == nil {
		return Unknown
	}
	if current.Kind != KUnion {
		return current
	}
	var remaining []*Type
	for _, o := range current.Options {
		if !Equal(o, t) {
			remaining = append(remaining, o)
		}
	}
	return Union(remaining...)
}

// IsConcrete reports whether t contains no Unknown in its list/set element,
// dict key and value, tuple elements or union options. Callable parameter
// and return types are not inspected.
func IsConcrete(t *Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KUnknown:
		return false
	case KList, KSet:
		return IsConcrete(t.Elem)
	case KTuple:
		for _, e := range t.Elems {
			if !IsConcrete(e) {
				return false
			}
		}
		return true
	case KDict:
		return IsConcrete(t.Key) && IsConcrete(t.Value)
	case KUnion:
		for _, o := range t.Options {
			if !IsConcrete(o) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// FromTypeExprName converts a parsed surface annotation (its name plus the
// already converted type arguments) into a lattice Type. A name that is not
// one of the builtin types below becomes Object<name>, a class type; no
// diagnostic is reported for it.
func FromTypeExprName(name string, args []*Type) *Type {
	switch name {
	case "int":
		return Int
	case "float":
		return Float
	case "bool":
		return Bool
	case "str":
		return Str
	case "bytes":
		return Bytes
	case "None":
		return None
	case "list":
		if len(args) == 1 {
			return List(args[0])
		}
		return List(Unknown)
	case "set":
		if len(args) == 1 {
			return SetOf(args[0])
		}
		return SetOf(Unknown)
	case "dict":
		if len(args) == 2 {
			return Dict(args[0], args[1])
		}
		return Dict(Unknown, Unknown)
	case "tuple":
		return Tuple(args...)
	case "Union":
		return Union(args...)
	case "Any":
		return Any
	default:
		return Object(name)
	}
}
