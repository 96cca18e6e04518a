package chunk

import (
	"sort"
	"sync"

	"github.com/OCharnyshevich/voxelworld/internal/world/coord"
)

// Store owns the loaded chunks keyed by grid position.
type Store struct {
	mu     sync.RWMutex
	chunks map[coord.Vec3i]*Chunk
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{chunks: make(map[coord.Vec3i]*Chunk)}
}

// Get returns the chunk at pos.
func (s *Store) Get(pos coord.Vec3i) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[pos]
	return c, ok
}

// Add stores c. An existing chunk at the same position is replaced and
// returned so the caller can dispose it.
func (s *Store) Add(c *Chunk) (replaced *Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced = s.chunks[c.Pos]
	s.chunks[c.Pos] = c
	return replaced
}

// Remove deletes and returns the chunk at pos.
func (s *Store) Remove(pos coord.Vec3i) (*Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[pos]
	if ok {
		delete(s.chunks, pos)
	}
	return c, ok
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Positions returns the stored positions in a stable order.
func (s *Store) Positions() []coord.Vec3i {
	s.mu.RLock()
	out := make([]coord.Vec3i, 0, len(s.chunks))
	for p := range s.chunks {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// Range calls fn for each chunk under the read lock until fn returns false.
func (s *Store) Range(fn func(c *Chunk) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chunks {
		if !fn(c) {
			return
		}
	}
}
