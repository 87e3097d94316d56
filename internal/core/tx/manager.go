// Package tx defines the transaction boundary domain services depend on.
package tx

import "context"

// Manager runs fn atomically. Calls nested inside fn join the outer
// transaction; an error from fn rolls everything back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapts a function to Manager.
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

func (f Func) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Inline runs fn directly with no transaction. Tests and tools that work
// against in-memory stores use it.
var Inline Manager = Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
