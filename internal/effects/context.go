package effects

import (
	"os"
	"time"
)

// EffContext holds the capability grants and environment an emitted
// program's I/O primitives run under. Created once per `ashc run`/test
// invocation; not safe for concurrent mutation, only concurrent reads.
type EffContext struct {
	Caps  map[string]Capability
	Env   EffEnv
	Clock *ClockContext
	Net   *NetContext
}

// EffEnv mirrors a small slice of OS environment configuration that makes
// effect execution deterministic under the test harness (C6): a fixed seed
// disables wall-clock-derived randomness, and a sandbox root confines FS
// operations so `ashc test` never touches paths outside the project.
type EffEnv struct {
	Seed    int64
	Sandbox string
}

func loadEffEnv() EffEnv {
	env := EffEnv{Sandbox: os.Getenv("ASHC_FS_SANDBOX")}
	return env
}

// ClockContext anchors monotonic time so repeated test runs produce
// reproducible `sleep`/`timer` behavior instead of reading the wall clock
// directly at every call.
type ClockContext struct {
	startTime time.Time
	epoch     int64
}

func NewClockContext() *ClockContext {
	now := time.Now()
	return &ClockContext{startTime: now, epoch: now.UnixMilli()}
}

func (c *ClockContext) NowMillis() int64 {
	return c.epoch + time.Since(c.startTime).Milliseconds()
}

// NetContext holds secure defaults for the `socket`/`connect`/`send`/`recv`
// primitives' dial and timeout behavior.
type NetContext struct {
	Timeout   time.Duration
	MaxBytes  int64
	AllowHTTP bool
}

func NewNetContext() *NetContext {
	return &NetContext{Timeout: 30 * time.Second, MaxBytes: 5 * 1024 * 1024}
}

// NewEffContext returns a deny-by-default context: no capability is
// granted until Grant is called.
func NewEffContext() *EffContext {
	return &EffContext{
		Caps:  make(map[string]Capability),
		Env:   loadEffEnv(),
		Clock: NewClockContext(),
		Net:   NewNetContext(),
	}
}

func (ctx *EffContext) Grant(cap Capability) { ctx.Caps[cap.Name] = cap }

func (ctx *EffContext) HasCap(name string) bool {
	_, ok := ctx.Caps[name]
	return ok
}

func (ctx *EffContext) RequireCap(name string) error {
	if !ctx.HasCap(name) {
		return NewCapabilityError(name)
	}
	return nil
}
