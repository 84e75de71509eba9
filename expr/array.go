package expr

import "fmt"

// Array is the immutable root of a byte-addressable symbolic object: an
// identity and a size, nothing else. The bytes themselves, concrete or
// symbolic, live in an UpdateList layered on top of the root. Splitting the
// two lets many UpdateLists share one Array identity (as happens when an
// object is copy-on-write cloned) without needing to compare or hash the
// full write history just to know "is this the same backing array".
type Array struct {
	ID   uint64
	Size uint
}

// NewArray returns a new Array with the given id and size in bytes.
func NewArray(id uint64, size uint) *Array {
	return &Array{ID: id, Size: size}
}

// String returns a string representation of the array.
func (a *Array) String() string {
	if a.ID != 0 {
		return fmt.Sprintf("(array #%d %d)", a.ID, a.Size)
	}
	return fmt.Sprintf("(array %d)", a.Size)
}

// CompareArray returns an integer comparing two arrays by identity and size.
// The result is 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArray(a, b *Array) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if a.ID < b.ID {
		return -1
	} else if a.ID > b.ID {
		return 1
	}
	if a.Size < b.Size {
		return -1
	} else if a.Size > b.Size {
		return 1
	}
	return 0
}

// ArrayCache deduplicates arrays created under the same name and size so
// that two symbolic allocations describing the same logical object (e.g.
// re-entering a loop that re-declares the same symbolic input) share one
// Array identity instead of minting a fresh one every time.
type ArrayCache struct {
	nextID uint64
	byKey  map[arrayCacheKey]*Array
}

type arrayCacheKey struct {
	name string
	size uint
}

// NewArrayCache returns a new, empty ArrayCache.
func NewArrayCache() *ArrayCache {
	return &ArrayCache{byKey: make(map[arrayCacheKey]*Array)}
}

// CreateArray returns the Array registered for (name, size), creating and
// caching a new one on first use. An empty name always allocates a fresh,
// uncached array since unnamed arrays have no identity to dedup on.
func (c *ArrayCache) CreateArray(name string, size uint) *Array {
	if name == "" {
		c.nextID++
		return NewArray(c.nextID, size)
	}

	key := arrayCacheKey{name: name, size: size}
	if a, ok := c.byKey[key]; ok {
		return a
	}
	c.nextID++
	a := NewArray(c.nextID, size)
	c.byKey[key] = a
	return a
}
