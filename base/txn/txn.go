// Package txn provides the single-writer transaction gate of the engine.
// Every public mutation runs to completion inside the gate, so no operation
// ever observes another operation's partial state.
package txn

import (
	"context"

	"github.com/mintleaf/goapi/base/ctx"
)

type gateKey struct{}

type Gate struct {
	token chan struct{}
}

func NewGate() *Gate {
	g := &Gate{token: make(chan struct{}, 1)}
	g.token <- struct{}{}
	return g
}

// Do runs fn while holding the writer token. It blocks until the token is
// available or the context is done. A context already inside this gate
// re-enters without blocking, so one operation can compose another without
// deadlocking; the composed call still commits within the outer boundary.
func (g *Gate) Do(c ctx.Ctx, fn func(ctx.Ctx) error) error {
	if held, ok := c.Value(gateKey{}).(*Gate); ok && held == g {
		return fn(c)
	}

	select {
	case <-g.token:
	case <-c.Done():
		return c.Err()
	}
	defer func() { g.token <- struct{}{} }()

	inner := ctx.Ctx{
		Context: context.WithValue(c.Context, gateKey{}, g),
		Logger:  c.Logger,
	}
	return fn(inner)
}
