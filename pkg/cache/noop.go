package cache

// Noop satisfies Store but never retains anything. Useful for tests and for
// running with caching disabled.
type Noop[T any] struct{}

func NewNoop[T any]() *Noop[T] { return &Noop[T]{} }

func (Noop[T]) Check(string, bool) (T, bool) {
	var zero T
	return zero, false
}

func (Noop[T]) Set(_ string, value T) T { return value }
func (Noop[T]) Invalidate(string)       {}
func (Noop[T]) Purge()                  {}
func (Noop[T]) Len() int                { return 0 }
