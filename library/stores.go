package library

import (
	"fmt"

	"go.uber.org/zap"
)

// Stores bundles the three record stores and applies history changes to them.
type Stores struct {
	Books   *Store[Book]
	Clients *Store[Client]
	Rentals *Store[Rental]
}

var _ Applier = (*Stores)(nil)

// NewMemoryStores returns stores that persist nothing.
func NewMemoryStores(logger *zap.Logger, metrics *Metrics) *Stores {
	books, _ := NewStore[Book]("books", nil, logger, metrics)
	clients, _ := NewStore[Client]("clients", nil, logger, metrics)
	rentals, _ := NewRentalStore(nil, logger, metrics)
	return &Stores{Books: books, Clients: clients, Rentals: rentals}
}

// Apply performs c on the store named by c.Entity.
func (s *Stores) Apply(c Change) error {
	switch c.Entity {
	case EntityBook:
		return applyChange[Book](s.Books, c)
	case EntityClient:
		return applyChange[Client](s.Clients, c)
	case EntityRental:
		return applyChange[Rental](s.Rentals, c)
	default:
		return fmt.Errorf("apply change to %q: %w", c.Entity, ErrInvalidOperation)
	}
}

func applyChange[T Entity](r Repository[T], c Change) error {
	switch c.Action {
	case ActionCreate:
		v, ok := c.After.(T)
		if !ok {
			return fmt.Errorf("create %s: unexpected payload %T: %w", c.Entity, c.After, ErrInvalidOperation)
		}
		return r.Add(v)
	case ActionDelete:
		v, ok := c.Before.(T)
		if !ok {
			return fmt.Errorf("delete %s: unexpected payload %T: %w", c.Entity, c.Before, ErrInvalidOperation)
		}
		_, err := r.Remove(v.EntityID())
		return err
	case ActionUpdate:
		v, ok := c.After.(T)
		if !ok {
			return fmt.Errorf("update %s: unexpected payload %T: %w", c.Entity, c.After, ErrInvalidOperation)
		}
		return r.Update(v)
	default:
		return fmt.Errorf("unknown action %q: %w", c.Action, ErrInvalidOperation)
	}
}
