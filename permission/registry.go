package permission

import (
	"fmt"
	"strings"
	"sync"
)

// Name returns the registry name of an (action, resource) pair.
func Name(action, resource string) string {
	return strings.ToLower(strings.TrimSpace(action)) + ":" + strings.ToLower(strings.TrimSpace(resource))
}

// Registry maps permission names to bit positions within a bitmask.
type Registry struct {
	width        int
	rootReserved bool
	rootBit      int

	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates a [Registry] for masks of the given width (64 or 128).
// When rootReserved is true the highest bit is kept for root roles.
func NewRegistry(width int, rootReserved bool) (*Registry, error) {
	if width != 64 && width != 128 {
		return nil, ErrInvalidWidth
	}

	r := &Registry{
		width:        width,
		rootReserved: rootReserved,
		rootBit:      -1,
		nameToBit:    make(map[string]int),
		bitToName:    make(map[int]string),
	}
	if rootReserved {
		r.rootBit = width - 1
	}

	return r, nil
}

// Register assigns the next free bit to name and returns it.
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrFrozen
	}
	if name == "" {
		return -1, ErrEmptyName
	}
	if _, exists := r.nameToBit[name]; exists {
		return -1, fmt.Errorf("permission %q: %w", name, ErrDuplicate)
	}

	next := len(r.nameToBit)
	limit := r.width
	if r.rootReserved {
		limit = r.rootBit
	}
	if next >= limit {
		return -1, ErrLimitExceeded
	}

	r.nameToBit[name] = next
	r.bitToName[next] = name

	return next, nil
}

// RegisterPair registers the permission for an (action, resource) pair.
func (r *Registry) RegisterPair(action, resource string) (int, error) {
	return r.Register(Name(action, resource))
}

// Bit returns the bit index for the named permission.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission name assigned to bit.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

func (r *Registry) Width() int {
	return r.width
}

// RootBit returns the reserved root bit, or false when no root bit is reserved.
func (r *Registry) RootBit() (int, bool) {
	if !r.rootReserved {
		return -1, false
	}
	return r.rootBit, true
}
