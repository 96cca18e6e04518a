package pipeline

// SlicePool hands out fixed-length slices and takes them back. Rent never
// blocks: an empty pool allocates. Return drops slices of the wrong size and
// slices beyond the pool's capacity.
type SlicePool[T any] struct {
	size int
	free chan []T
}

func NewSlicePool[T any](size, capacity int) *SlicePool[T] {
	return &SlicePool[T]{size: size, free: make(chan []T, capacity)}
}

func (p *SlicePool[T]) Rent() []T {
	select {
	case s := <-p.free:
		return s
	default:
		return make([]T, p.size)
	}
}

func (p *SlicePool[T]) Return(s []T) {
	if cap(s) < p.size {
		return
	}
	s = s[:p.size]
	clear(s)
	select {
	case p.free <- s:
	default:
	}
}

// Idle returns the number of slices waiting to be rented.
func (p *SlicePool[T]) Idle() int { return len(p.free) }
