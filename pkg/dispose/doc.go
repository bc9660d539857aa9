// Package dispose provides the disposal contract used by vgraph contexts.
//
// A Disposable releases resources when Dispose is called and can carry other
// disposables whose lifetime is tied to its own:
//
//	owner := dispose.NewOwner(nil)
//	sub := bus.On("ready", handler, owner, false)
//	owner.AddDisposable(sub)
//	owner.Dispose() // sub is disposed too
//
// Owners form a hierarchy. Disposing an owner disposes its children first
// (last created first), then the disposables and cleanups registered on it
// in reverse registration order.
package dispose
