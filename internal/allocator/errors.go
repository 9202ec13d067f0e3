package allocator

import "errors"

var (
	// ErrNoContainers is returned when items are allocated without any container to place them into.
	ErrNoContainers = errors.New("no nodes configured: at least one node is required to allocate files")
	// ErrInvalidName is returned when an item or container is added with an empty name.
	ErrInvalidName = errors.New("name must not be empty")
	// ErrInvalidSize is returned when an item is added with a negative size.
	ErrInvalidSize = errors.New("size must be a non-negative integer")
	// ErrInvalidCapacity is returned when a container is added with a negative capacity.
	ErrInvalidCapacity = errors.New("capacity must be a non-negative integer")
	// ErrSizeOverflow is returned when the total size of the added items would exceed the int64 range.
	ErrSizeOverflow = errors.New("total file size out of range")
	// ErrDuplicateItem is returned when an item name is added twice.
	ErrDuplicateItem = errors.New("duplicate item name")
	// ErrDuplicateContainer is returned when a container name is added twice.
	ErrDuplicateContainer = errors.New("duplicate node name")
)
