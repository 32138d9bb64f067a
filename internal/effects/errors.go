package effects

import "fmt"

// CapabilityError is returned by RequireCap when an emitted program calls
// an I/O primitive without the matching capability having been granted by
// its host (the orchestrator's build-run step, or `ashc run`).
type CapabilityError struct {
	Name string
}

func NewCapabilityError(name string) *CapabilityError {
	return &CapabilityError{Name: name}
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %q not granted", e.Name)
}
