package peer

import (
	"context"
	"log"
	"net"

	"github.com/pkg/errors"

	"drone/world"
)

// Bind reserves the listening address. Failures are ErrResourceUnavailable.
func Bind(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(world.ErrResourceUnavailable, "listen %s: %v", addr, err)
	}
	return ln, nil
}

// Accept waits for exactly one peer on ln, then closes ln.
func Accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log.Printf("peer listener: waiting on %s", ln.Addr())
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "accept")
	}
	return conn, nil
}

// Listen binds addr and waits for exactly one peer.
func Listen(ctx context.Context, addr string) (net.Conn, error) {
	ln, err := Bind(addr)
	if err != nil {
		return nil, err
	}
	return Accept(ctx, ln)
}

// Dial connects to a listening peer.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(ErrSessionLost, "dial %s: %v", addr, err)
	}
	return conn, nil
}
