package library

// Backend persists the full contents of one store.
//
// Load returns the persisted entities in insertion order, or nothing when
// nothing was persisted yet. Save receives the complete current contents after
// each mutation; the store swallows its errors.
type Backend[T Entity] interface {
	Load() ([]T, error)
	Save(items []T) error
}

// MemoryBackend persists nothing.
type MemoryBackend[T Entity] struct{}

func (MemoryBackend[T]) Load() ([]T, error) { return nil, nil }
func (MemoryBackend[T]) Save([]T) error     { return nil }
