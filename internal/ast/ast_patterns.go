package ast

// AssignTargets returns the flattened set of identifier names bound by an
// assignment target, recursing through tuple/list destructuring and
// Starred wrappers. Used by the type inference pre-pass to seed scope
// entries before a single forward walk.
func AssignTargets(target Expr) []string {
	switch t := target.(type) {
	case *Ident:
		return []string{t.Name}
	case *TupleExpr:
		var names []string
		for _, e := range t.Elts {
			names = append(names, AssignTargets(e)...)
		}
		return names
	case *ListExpr:
		var names []string
		for _, e := range t.Elts {
			names = append(names, AssignTargets(e)...)
		}
		return names
	case *Starred:
		return AssignTargets(t.X)
	default:
		// Attribute/Subscript targets don't introduce new bindings.
		return nil
	}
}

// IsSubscriptTarget reports whether an assignment target is a subscript,
// which must be evaluated exactly once when desugaring
// augmented assignment (`x[i] += y`).
func IsSubscriptTarget(target Expr) bool {
	_, ok := target.(*Subscript)
	return ok
}

// IsIsInstanceGuard reports whether cond is (or is built from, via `and`)
// an isinstance check on ident, returning the narrowed type name. This is
// the entry point type inference uses to apply narrowing
// rule at `if isinstance(x, T)` branches.
func IsIsInstanceGuard(cond Expr, ident string) (*TypeExpr, bool) {
	switch c := cond.(type) {
	case *IsInstance:
		if id, ok := c.X.(*Ident); ok && id.Name == ident {
			return c.Type, true
		}
	case *BoolOp:
		if c.Op == "and" {
			for _, op := range c.Operands {
				if t, ok := IsIsInstanceGuard(op, ident); ok {
					return t, true
				}
			}
		}
	}
	return nil, false
}
