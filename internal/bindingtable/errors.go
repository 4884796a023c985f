package bindingtable

import (
	"errors"
	"fmt"
)

var (
	ErrTableFull    = errors.New("binding table full")
	ErrNoSuchEntry  = errors.New("no such binding")
	ErrOutOfRange   = errors.New("binding index out of range")
	ErrInvalidEntry = errors.New("invalid binding entry")

	// ErrAlreadyExists is returned when inserting a binding that is already
	// present. It also matches ErrTableFull.
	ErrAlreadyExists = fmt.Errorf("%w: binding already present", ErrTableFull)
)
