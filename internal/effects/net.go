package effects

import (
	"fmt"
	"net"
)

func init() {
	RegisterOp("Net", "socket", netSocket)
	RegisterOp("Net", "connect", netConnect)
	RegisterOp("Net", "send", netSend)
	RegisterOp("Net", "recv", netRecv)
}

var conns = map[int]net.Conn{}
var nextConn = 1

// netSocket allocates a connection slot; the actual dial happens in
// connect, matching the source language's separate socket()/connect()
// primitives.
func netSocket(_ *EffContext, _ []Value) (Value, error) {
	id := nextConn
	nextConn++
	return id, nil
}

func netConnect(ctx *EffContext, args []Value) (Value, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("connect: expected (handle, host, port)")
	}
	id, ok := args[0].(int)
	if !ok {
		return nil, fmt.Errorf("connect: not a socket handle: %v", args[0])
	}
	host, _ := args[1].(string)
	port, _ := args[2].(int)
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), ctx.Net.Timeout)
	if err != nil {
		return nil, err
	}
	conns[id] = conn
	return nil, nil
}

func netSend(_ *EffContext, args []Value) (Value, error) {
	conn, err := connOf(args)
	if err != nil {
		return nil, err
	}
	data, _ := args[1].(string)
	n, err := conn.Write([]byte(data))
	return n, err
}

func netRecv(ctx *EffContext, args []Value) (Value, error) {
	conn, err := connOf(args)
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
	if int64(n) > ctx.Net.MaxBytes {
		return nil, fmt.Errorf("recv: requested size exceeds MaxBytes")
	}
	k, err := conn.Read(buf)
	if err != nil && k == 0 {
		return "", err
	}
	return string(buf[:k]), nil
}

func connOf(args []Value) (net.Conn, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("expected a socket handle argument")
	}
	id, ok := args[0].(int)
	if !ok {
		return nil, fmt.Errorf("not a socket handle: %v", args[0])
	}
	conn, ok := conns[id]
	if !ok {
		return nil, fmt.Errorf("socket %d not connected", id)
	}
	return conn, nil
}
