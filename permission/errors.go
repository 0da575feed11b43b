package permission

import "errors"

var (
	// ErrInvalidWidth is returned for mask widths other than 64 or 128 bits.
	ErrInvalidWidth = errors.New("invalid mask width")
	// ErrFrozen is returned when registering after Freeze.
	ErrFrozen = errors.New("permission registry frozen")
	// ErrEmptyName is returned for empty permission or role names.
	ErrEmptyName = errors.New("permission name cannot be empty")
	// ErrDuplicate is returned when a permission or role is registered twice.
	ErrDuplicate = errors.New("already registered")
	// ErrLimitExceeded is returned when the mask has no free bit left.
	ErrLimitExceeded = errors.New("permission limit exceeded")
	// ErrUnknownPermission is returned when a role references an unregistered permission.
	ErrUnknownPermission = errors.New("permission not registered")
)
