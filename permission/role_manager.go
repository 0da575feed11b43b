package permission

import (
	"fmt"
	"sync"
)

// RoleManager composes permission masks per role name.
//
// RoleManager instances are configured during initialization, frozen, and then
// treated as immutable.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask
	root   map[string]bool
	frozen bool
}

func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask),
		root:     make(map[string]bool),
	}
}

// RegisterRole builds the mask for roleName from the named permissions.
// Every permission must already be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	mask, err := rm.prepare(roleName)
	if err != nil {
		return err
	}

	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return fmt.Errorf("role %q: %w: %s", roleName, ErrUnknownPermission, perm)
		}
		mask.Set(bit)
	}

	rm.roles[roleName] = mask
	return nil
}

// RegisterRootRole registers a role that holds the root bit and therefore
// every permission. The registry must reserve a root bit.
func (rm *RoleManager) RegisterRootRole(roleName string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rootBit, ok := rm.registry.RootBit()
	if !ok {
		return fmt.Errorf("role %q: registry has no root bit", roleName)
	}

	mask, err := rm.prepare(roleName)
	if err != nil {
		return err
	}
	mask.Set(rootBit)

	rm.roles[roleName] = mask
	rm.root[roleName] = true
	return nil
}

func (rm *RoleManager) prepare(roleName string) (Mask, error) {
	if rm.frozen {
		return nil, ErrFrozen
	}
	if roleName == "" {
		return nil, ErrEmptyName
	}
	if _, exists := rm.roles[roleName]; exists {
		return nil, fmt.Errorf("role %q: %w", roleName, ErrDuplicate)
	}
	return newMask(rm.registry.Width())
}

// GetMask returns the mask registered for roleName.
func (rm *RoleManager) GetMask(roleName string) (Mask, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// IsRoot reports whether roleName was registered with RegisterRootRole.
func (rm *RoleManager) IsRoot(roleName string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.root[roleName]
}

// Grants reports whether roleName holds the named permission. Root roles
// grant every permission, registered or not.
func (rm *RoleManager) Grants(roleName, permissionName string) bool {
	rm.mu.RLock()
	mask, ok := rm.roles[roleName]
	root := rm.root[roleName]
	rm.mu.RUnlock()

	if !ok {
		return false
	}
	if root {
		return true
	}

	bit, ok := rm.registry.Bit(permissionName)
	if !ok {
		return false
	}
	_, rootReserved := rm.registry.RootBit()
	return mask.Has(bit, rootReserved)
}

func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
