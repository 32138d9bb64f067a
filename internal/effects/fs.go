package effects

import (
	"fmt"
	"os"
	"path/filepath"
)

func init() {
	RegisterOp("FS", "open", fsOpen)
	RegisterOp("FS", "read", fsRead)
	RegisterOp("FS", "write", fsWrite)
	RegisterOp("FS", "close", fsClose)
}

// handles tracks open file descriptors by an opaque integer id, the same
// shape a generated `open()` wrapper in the target language expects back.
var handles = map[int]*os.File{}
var nextHandle = 1

func sandboxPath(ctx *EffContext, name string) (string, error) {
	if ctx.Env.Sandbox == "" {
		return name, nil
	}
	full := filepath.Join(ctx.Env.Sandbox, name)
	if rel, err := filepath.Rel(ctx.Env.Sandbox, full); err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		return "", fmt.Errorf("path %q escapes FS sandbox", name)
	}
	return full, nil
}

func fsOpen(ctx *EffContext, args []Value) (Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("open: expected a path argument")
	}
	name, _ := args[0].(string)
	mode := "r"
	if len(args) > 1 {
		mode, _ = args[1].(string)
	}
	path, err := sandboxPath(ctx, name)
	if err != nil {
		return nil, err
	}
	var f *os.File
	switch mode {
	case "w":
		f, err = os.Create(path)
	case "a":
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	default:
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	id := nextHandle
	nextHandle++
	handles[id] = f
	return id, nil
}

func fsRead(_ *EffContext, args []Value) (Value, error) {
	id, f, err := handleOf(args)
	if err != nil {
		return nil, err
	}
	n := 4096
	if len(args) > 1 {
		if v, ok := args[1].(int); ok {
			n = v
		}
	}
	buf := make([]byte, n)
	k, err := f.Read(buf)
	_ = id
	if err != nil && k == 0 {
		return "", err
	}
	return string(buf[:k]), nil
}

func fsWrite(_ *EffContext, args []Value) (Value, error) {
	_, f, err := handleOf(args)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("write: expected data argument")
	}
	s, _ := args[1].(string)
	n, err := f.WriteString(s)
	return n, err
}

func fsClose(_ *EffContext, args []Value) (Value, error) {
	id, f, err := handleOf(args)
	if err != nil {
		return nil, err
	}
	delete(handles, id)
	return nil, f.Close()
}

func handleOf(args []Value) (int, *os.File, error) {
	if len(args) < 1 {
		return 0, nil, fmt.Errorf("expected a file handle argument")
	}
	id, ok := args[0].(int)
	if !ok {
		return 0, nil, fmt.Errorf("not a file handle: %v", args[0])
	}
	f, ok := handles[id]
	if !ok {
		return 0, nil, fmt.Errorf("no such open file handle: %d", id)
	}
	return id, f, nil
}
