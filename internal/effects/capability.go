// Package effects implements the capability-gated I/O surface of the
// runtime ABI -- the closed set of primitives internal/traits checks
// does_io against: file, socket, timer, stdin/stdout. An emitted Ash
// program reaches every one of them at runtime through the
// RegisterOp/EffContext capability-token mechanism; nothing performs I/O
// without a granted capability.
package effects

// Capability is a granted permission to execute one effect family's
// operations ("FS", "Net", "Clock", "IO").
type Capability struct {
	Name string
	Meta map[string]any
}

func NewCapability(name string) Capability {
	return Capability{Name: name, Meta: make(map[string]any)}
}
