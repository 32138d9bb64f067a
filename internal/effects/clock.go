package effects

import (
	"fmt"
	"time"
)

func init() {
	RegisterOp("Clock", "sleep", clockSleep)
	RegisterOp("Clock", "timer", clockTimer)
}

func clockSleep(ctx *EffContext, args []Value) (Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("sleep: expected a duration in milliseconds")
	}
	ms, _ := args[0].(int)
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return nil, nil
}

// clockTimer returns a deadline (ms since the clock's epoch) the cooperative
// scheduler's await(timer_id) waits on; the scheduler, not this op, owns the
// actual wait.
func clockTimer(ctx *EffContext, args []Value) (Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("timer: expected a duration in milliseconds")
	}
	ms, _ := args[0].(int)
	return ctx.Clock.NowMillis() + int64(ms), nil
}
