package library

import (
	"fmt"
	"iter"
	"slices"

	"go.uber.org/zap"
)

// Entity is anything a Store can key by id.
type Entity interface {
	EntityID() string
}

// Repository is the record store contract shared by books, clients and rentals.
type Repository[T Entity] interface {
	Get(id string) (T, error)
	Add(v T) error
	Remove(id string) (T, error)
	Update(v T) error
	Find(match func(T) bool) (T, bool)
	All() iter.Seq[T]
	Len() int
}

var (
	_ Repository[Book]   = (*Store[Book])(nil)
	_ Repository[Client] = (*Store[Client])(nil)
	_ Repository[Rental] = (*Store[Rental])(nil)
)

// Store keeps entities in memory in insertion order and writes the full
// contents to its backend after every mutation. Save failures are logged and
// counted, never returned.
type Store[T Entity] struct {
	name    string
	items   map[string]T
	order   []string
	backend Backend[T]

	// checkAdd runs before an insert, after the duplicate id check.
	checkAdd func(s *Store[T], v T) error

	logger  *zap.Logger
	metrics *Metrics
}

// NewStore creates a store named name (used in logs and metrics) and fills it
// from backend.
func NewStore[T Entity](name string, backend Backend[T], logger *zap.Logger, metrics *Metrics) (*Store[T], error) {
	return newStore(name, backend, nil, logger, metrics)
}

// newStore loads persisted entities through the same checks as Add; rows that
// fail them are logged and skipped.
func newStore[T Entity](name string, backend Backend[T], checkAdd func(*Store[T], T) error, logger *zap.Logger, metrics *Metrics) (*Store[T], error) {
	if backend == nil {
		backend = MemoryBackend[T]{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store[T]{
		name:     name,
		items:    make(map[string]T),
		backend:  backend,
		checkAdd: checkAdd,
		logger:   logger.With(zap.String("store", name)),
		metrics:  metrics,
	}

	loaded, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	for _, v := range loaded {
		id := v.EntityID()
		if _, dup := s.items[id]; dup {
			s.logger.Warn("skipping duplicate id in persisted data", zap.String("id", id))
			continue
		}
		if s.checkAdd != nil {
			if err := s.checkAdd(s, v); err != nil {
				s.logger.Warn("skipping invalid persisted entity", zap.String("id", id), zap.Error(err))
				continue
			}
		}
		s.items[id] = v
		s.order = append(s.order, id)
	}
	s.logger.Debug("store loaded", zap.Int("count", len(s.order)))
	return s, nil
}

// NewRentalStore is a Store that also rejects a second active rental for the
// same book.
func NewRentalStore(backend Backend[Rental], logger *zap.Logger, metrics *Metrics) (*Store[Rental], error) {
	return newStore("rentals", backend, oneActiveRentalPerBook, logger, metrics)
}

func oneActiveRentalPerBook(s *Store[Rental], r Rental) error {
	if !r.Active() {
		return nil
	}
	for _, id := range s.order {
		if other := s.items[id]; other.BookID == r.BookID && other.Active() {
			return fmt.Errorf("book %s already rented: %w", r.BookID, ErrDuplicateID)
		}
	}
	return nil
}

// Name returns the store's name.
func (s *Store[T]) Name() string { return s.name }

// Get returns the entity with the given id.
func (s *Store[T]) Get(id string) (T, error) {
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: id %q: %w", s.name, id, ErrNotFound)
	}
	return v, nil
}

// Add inserts v at the end of the insertion order.
func (s *Store[T]) Add(v T) error {
	id := v.EntityID()
	if _, exists := s.items[id]; exists {
		return fmt.Errorf("%s: id %q: %w", s.name, id, ErrDuplicateID)
	}
	if s.checkAdd != nil {
		if err := s.checkAdd(s, v); err != nil {
			return err
		}
	}
	s.items[id] = v
	s.order = append(s.order, id)
	s.save()
	return nil
}

// Remove deletes and returns the entity with the given id.
func (s *Store[T]) Remove(id string) (T, error) {
	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: id %q: %w", s.name, id, ErrNotFound)
	}
	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.save()
	return v, nil
}

// Update replaces the stored entity that has v's id, keeping its position.
func (s *Store[T]) Update(v T) error {
	id := v.EntityID()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%s: id %q: %w", s.name, id, ErrNotFound)
	}
	s.items[id] = v
	s.save()
	return nil
}

// Find returns the first entity in insertion order for which match is true.
func (s *Store[T]) Find(match func(T) bool) (T, bool) {
	for _, id := range s.order {
		if v := s.items[id]; match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// All returns a sequence over a snapshot of the store taken now. The
// sequence is not restartable: ranging over it again continues where the
// previous range stopped.
func (s *Store[T]) All() iter.Seq[T] {
	snap := s.snapshot()
	pos := 0
	return func(yield func(T) bool) {
		for pos < len(snap) {
			v := snap[pos]
			pos++
			if !yield(v) {
				return
			}
		}
	}
}

// Len returns the number of stored entities.
func (s *Store[T]) Len() int { return len(s.order) }

func (s *Store[T]) snapshot() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Store[T]) save() {
	if err := s.backend.Save(s.snapshot()); err != nil {
		s.logger.Warn("save failed, keeping in-memory state", zap.Error(err))
		s.metrics.saveFailed(s.name)
	}
}
