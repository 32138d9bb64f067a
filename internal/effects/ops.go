package effects

import "fmt"

// Value is a runtime value on either side of an effect call: an argument
// passed in, or a result passed back. Kept as `any` rather than a tagged
// union -- the emitted program has its own concrete value representation,
// and effects never needs more than to pass values through.
type Value = any

// Op implements one effect operation.
type Op func(ctx *EffContext, args []Value) (Value, error)

// Registry holds every registered operation, grouped by capability name.
// Pre-seeded so RegisterOp can run from package init() without a nil-map
// check at every call site.
var Registry = map[string]map[string]Op{
	"IO":    {},
	"FS":    {},
	"Net":   {},
	"Clock": {},
}

// RegisterOp is called from each op file's init() to populate Registry.
func RegisterOp(capName, opName string, op Op) {
	if Registry[capName] == nil {
		Registry[capName] = make(map[string]Op)
	}
	Registry[capName][opName] = op
}

// PrimitiveNames returns the bare names of every registered operation.
// This is the closed does_io list: internal/traits marks a function as
// performing I/O exactly when it calls one of these.
func PrimitiveNames() map[string]bool {
	names := map[string]bool{}
	for _, ops := range Registry {
		for name := range ops {
			names[name] = true
		}
	}
	return names
}

// Call is the single entry point emitted code goes through for every
// does_io primitive: capability check, lookup, execute.
func Call(ctx *EffContext, capName, opName string, args []Value) (Value, error) {
	if err := ctx.RequireCap(capName); err != nil {
		return nil, err
	}
	ops, ok := Registry[capName]
	if !ok {
		return nil, fmt.Errorf("unknown capability: %s", capName)
	}
	op, ok := ops[opName]
	if !ok {
		return nil, fmt.Errorf("unknown operation %s.%s", capName, opName)
	}
	return op(ctx, args)
}
