package targetlang

import (
	"encoding/json"
	"os"
)

// SidecarSchema tags the debug sidecar format, the line-map JSON written
// next to the emitted binary/object when --debug is set. Deterministic
// encoding (stable field order, no map literals at the top level) keeps
// Go's unordered map iteration from leaking into golden-tested output.
const SidecarSchema = "ashc.sidecar/v1"

// Sidecar is the on-disk debug sidecar document for one emitted module.
type Sidecar struct {
	Schema  string        `json:"schema"`
	Module  string        `json:"module"`
	Entries []LineMapEntry `json:"entries"`
}

// WriteSidecar serializes mod's line map to path as indented, deterministic
// JSON (encoding/json already emits struct fields in declaration order,
// and LineMap is a slice built in emission order, so no explicit sort is
// needed to get stable output across runs).
func WriteSidecar(path string, mod Module) error {
	doc := Sidecar{Schema: SidecarSchema, Module: mod.Name, Entries: mod.Sidecar}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
