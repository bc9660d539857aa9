package dispose

import (
	"sync"
	"sync/atomic"
)

// Disposable is anything whose resources can be released.
type Disposable interface {
	// Dispose releases the resources. Calling it more than once is a no-op.
	Dispose()

	// AddDisposable ties the lifetime of other disposables to this one.
	AddDisposable(others ...Disposable)
}

// globalIDCounter is the source of unique owner IDs.
var globalIDCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// Func adapts a plain function into a Disposable. The function runs at most
// once.
func Func(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	fn   func()
	once sync.Once
	// others are disposed after fn.
	others   []Disposable
	disposed bool
	mu       sync.Mutex
}

func (f *funcDisposable) Dispose() {
	f.once.Do(func() {
		if f.fn != nil {
			f.fn()
		}
		f.mu.Lock()
		others := f.others
		f.others = nil
		f.disposed = true
		f.mu.Unlock()
		for i := len(others) - 1; i >= 0; i-- {
			others[i].Dispose()
		}
	})
}

func (f *funcDisposable) AddDisposable(others ...Disposable) {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		for _, d := range others {
			d.Dispose()
		}
		return
	}
	f.others = append(f.others, others...)
	f.mu.Unlock()
}

// Nop is a Disposable that does nothing.
var Nop Disposable = nopDisposable{}

type nopDisposable struct{}

func (nopDisposable) Dispose() {}
func (nopDisposable) AddDisposable(...Disposable) {}
