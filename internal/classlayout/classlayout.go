// Package classlayout builds each class's flattened layout: an ordered
// map from attribute name to (type, offset), with method tables flattened
// by resolution order at class-definition time. Inheritance produces a
// new flat layout, not a runtime lookup chain. A class observed to be
// mutated dynamically (a `setattr` call on one of its instances) degrades
// to an open, boxed layout.
//
// Layouts are built by walking declarations in order and assigning each
// name a stable position -- the same discipline as "a module's
// exported symbol table" to "a class's flattened field+method table,
// inherited base-first."
package classlayout

import (
	"github.com/ashlang/ashc/internal/ast"
	"github.com/ashlang/ashc/internal/types"
)

// Field is one attribute slot: its inferred type and its byte offset in
// declaration order (offsets are slot indices here; the emitter computes
// real byte layout from target-language field sizes).
type Field struct {
	Name   string
	Type   *types.Type
	Offset int
}

// Method is a flattened, resolution-ordered method table entry. Resolved
// means the method comes from Owner (possibly a base class), not
// necessarily the class whose Layout this entry lives in.
type Method struct {
	Name  string
	Owner string
	Decl  *ast.FuncDecl
}

// Layout is one class's flattened shape. Closed layouts compile attribute
// access to a fixed offset and dispatch to a direct call;
// Open layouts compile to a boxed dictionary with dynamic lookup.
type Layout struct {
	ClassID string
	Bases   []string
	Fields  []Field
	Methods []Method
	Open    bool
	fieldIx map[string]int
	methIx  map[string]int
}

func (l *Layout) FieldOffset(name string) (int, bool) {
	i, ok := l.fieldIx[name]
	return i, ok
}

func (l *Layout) LookupMethod(name string) (*Method, bool) {
	i, ok := l.methIx[name]
	if !ok {
		return nil, false
	}
	return &l.Methods[i], true
}

// Builder accumulates Layouts across a whole program, resolving base
// classes depth-first so a derived class's layout starts from its base's
// flattened fields/methods: inheritance produces a new flat layout, not
// a runtime lookup chain.
type Builder struct {
	layouts map[string]*Layout
	decls   map[string]*ast.ClassDecl
}

func NewBuilder() *Builder {
	return &Builder{layouts: map[string]*Layout{}, decls: map[string]*ast.ClassDecl{}}
}

// AddClass registers a class declaration for later layout construction.
// Multiple classes (across modules) may be added before Build is called.
func (b *Builder) AddClass(d *ast.ClassDecl) { b.decls[d.Name] = d }

// Build computes every registered class's Layout. dynamicallyMutated
// records class names observed (by a prior scan of the whole program, see
// FindDynamicMutations) to require an open layout: any use of dynamic
// attribute APIs on an instance downgrades the whole class.
func (b *Builder) Build(dynamicallyMutated map[string]bool) map[string]*Layout {
	for name := range b.decls {
		b.resolve(name, dynamicallyMutated, map[string]bool{})
	}
	return b.layouts
}

func (b *Builder) resolve(name string, dynamic map[string]bool, visiting map[string]bool) *Layout {
	if l, ok := b.layouts[name]; ok {
		return l
	}
	if visiting[name] {
		// Cyclic base reference: not legal Ash, but fail safe by returning
		// an empty open layout instead of infinite recursion.
		return &Layout{ClassID: name, Open: true, fieldIx: map[string]int{}, methIx: map[string]int{}}
	}
	visiting[name] = true
	d, ok := b.decls[name]
	if !ok {
		// Unknown base (e.g. a built-in exception class): treat as an
		// opaque open base with no fields of its own.
		return &Layout{ClassID: name, Open: true, fieldIx: map[string]int{}, methIx: map[string]int{}}
	}
	layout := &Layout{ClassID: name, Bases: d.Bases, fieldIx: map[string]int{}, methIx: map[string]int{}}
	for _, base := range d.Bases {
		baseLayout := b.resolve(base, dynamic, visiting)
		if baseLayout.Open {
			layout.Open = true
		}
		for _, f := range baseLayout.Fields {
			layout.addField(f.Name, f.Type)
		}
		for _, m := range baseLayout.Methods {
			layout.addMethod(m.Name, m.Owner, m.Decl)
		}
	}
	// Fields declared via `self.x = ...` assignments inside methods,
	// scanned in method declaration order so offsets are stable across
	// builds.
	for _, stmt := range d.Body {
		fn, ok := stmt.(*ast.FuncDecl)
		if !ok {
			continue
		}
		layout.addMethod(fn.Name, name, fn)
		if fn.Name == "__init__" {
			scanSelfFields(fn.Body, layout)
		}
	}
	if dynamic[name] {
		layout.Open = true
	}
	layout.ClassID = name
	b.layouts[name] = layout
	delete(visiting, name)
	return layout
}

func (l *Layout) addField(name string, t *types.Type) {
	if i, ok := l.fieldIx[name]; ok {
		l.Fields[i].Type = types.Join(l.Fields[i].Type, t)
		return
	}
	l.fieldIx[name] = len(l.Fields)
	l.Fields = append(l.Fields, Field{Name: name, Type: t, Offset: len(l.Fields)})
}

func (l *Layout) addMethod(name, owner string, decl *ast.FuncDecl) {
	if i, ok := l.methIx[name]; ok {
		l.Methods[i] = Method{Name: name, Owner: owner, Decl: decl}
		return
	}
	l.methIx[name] = len(l.Methods)
	l.Methods = append(l.Methods, Method{Name: name, Owner: owner, Decl: decl})
}

// scanSelfFields walks an `__init__` body for `self.name = value`
// assignments, seeding the layout's field list in source order. The field
// type starts Unknown; inference tightens it via the normal dataflow pass
// over `__init__`'s body.
func scanSelfFields(body []ast.Stmt, layout *Layout) {
	for _, s := range body {
		assign, ok := s.(*ast.Assign)
		if !ok {
			continue
		}
		for _, target := range assign.Targets {
			attr, ok := target.(*ast.Attribute)
			if !ok {
				continue
			}
			if id, ok := attr.X.(*ast.Ident); ok && id.Name == "self" {
				layout.addField(attr.Name, types.Unknown)
			}
		}
	}
}

// FindDynamicMutations scans prog for `setattr(obj, ...)` calls whose
// first argument is a plain variable, returning the set of class names (by
// the variable's inferred Object<ClassId>, supplied by classOf) that must
// degrade to an open layout. Attribute assignments (`obj.name = ...`) are
// not scanned, so assigning an undeclared attribute does not mark a class.
func FindDynamicMutations(prog *ast.Program, classOf func(varName string) (string, bool)) map[string]bool {
	dynamic := map[string]bool{}
	ast.Walk(prog, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		id, ok := call.Func.(*ast.Ident)
		if !ok || id.Name != "setattr" || len(call.Args) == 0 {
			return true
		}
		if target, ok := call.Args[0].(*ast.Ident); ok {
			if cls, found := classOf(target.Name); found {
				dynamic[cls] = true
			}
		}
		return true
	})
	return dynamic
}
