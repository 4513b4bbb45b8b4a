package jobspace

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when a collection already holds the name.
	ErrDuplicateName = errors.New("jobspace: duplicate name in collection")

	// ErrEmptyName is returned for the empty string as a name.
	ErrEmptyName = errors.New("jobspace: collection names must be non-empty")
)

// NamedCollection is an insertion-ordered name→value mapping. Order is
// significant: collection order is part of the job-id encoding, so two
// collections with the same contents in different orders describe different
// job spaces.
type NamedCollection[T any] struct {
	names  []string
	values map[string]T
}

// NewNamedCollection returns an empty collection.
func NewNamedCollection[T any]() *NamedCollection[T] {
	return &NamedCollection[T]{values: make(map[string]T)}
}

// Add appends a named value. Names must be unique and non-empty.
func (c *NamedCollection[T]) Add(name string, value T) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := c.values[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	c.names = append(c.names, name)
	c.values[name] = value
	return nil
}

// Get returns the value for name.
func (c *NamedCollection[T]) Get(name string) (T, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the insertion order.
func (c *NamedCollection[T]) Names() []string {
	return append([]string(nil), c.names...)
}

// Len reports the number of entries.
func (c *NamedCollection[T]) Len() int { return len(c.names) }
