// Package graph implements a demand-driven, incrementally recomputed
// dependency graph.
//
// A Graph binds node identities (*ID) to nodes. Input nodes hold values that
// are written from outside; inner nodes compute their value from an ordered
// list of parameter nodes through a Provider. Every committed write advances a
// logical clock (Time), and reads are memoized against the newest parameter
// time they depend on, so a node is recomputed only when one of its inputs
// actually changed.
//
// # Identities and contexts
//
// Static IDs have a single value shared by the whole process. Instance IDs
// have one value per Context, typically a *dispose.Owner scoping some unit of
// work. Memo entries, input versions and monitors belonging to a context are
// released when it is disposed.
//
//	price := graph.InstanceID("price", check.Number)
//	qty := graph.InstanceID("qty", check.Int)
//	total := graph.InstanceID("total", check.Number)
//
//	g := graph.New()
//	g.RegisterProvider(total, graph.Func2("mul", func(_ context.Context, p float64, q int) (float64, error) {
//	    return p * float64(q), nil
//	}), price, qty)
//
//	owner := dispose.NewOwner(nil)
//	setPrice, _ := g.CreateProvider(price, 2.5, owner)
//	g.CreateProvider(qty, 4, owner)
//
//	v, _ := g.Get(ctx, total, g.Timestamp(), owner) // 10.0
//	setPrice(ctx, 3.0)
//	v, _ = g.Get(ctx, total, g.Timestamp(), owner) // 12.0
//
// # Monitoring
//
// The first read of an inner node in a non-global context subscribes a
// monitor. Whenever a node it depends on is refreshed, the monitor recomputes
// the node eagerly and publishes a ReadyEvent, so subscribers of the graph's
// event bus learn about new values without polling.
//
// # Batching
//
// Writes issued inside Batch are queued and committed together when the
// outermost batch returns; monitors observe the final state only.
package graph
