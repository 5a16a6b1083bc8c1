package library

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReturnPolicy decides what happens to a rental when its book comes back.
type ReturnPolicy string

const (
	// ReturnStamp keeps the rental and records the return date.
	ReturnStamp ReturnPolicy = "stamp"
	// ReturnDelete removes the rental record.
	ReturnDelete ReturnPolicy = "delete"
)

// ParseReturnPolicy accepts "stamp", "delete" or "" (stamp).
func ParseReturnPolicy(s string) (ReturnPolicy, error) {
	switch p := ReturnPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ReturnStamp, nil
	case ReturnStamp, ReturnDelete:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported return policy %q: %w", s, ErrInvalidOperation)
	}
}

// RentalService rents and returns books. Each operation touches the rental
// store and the book's availability, recorded as one CascadedOperation.
type RentalService struct {
	stores  *Stores
	books   *BookService
	history *History
	policy  ReturnPolicy
	now     func() time.Time
	logger  *zap.Logger
}

// RentalOption configures a RentalService.
type RentalOption func(*RentalService)

// WithReturnPolicy sets the return policy. The default is ReturnStamp.
func WithReturnPolicy(p ReturnPolicy) RentalOption {
	return func(s *RentalService) { s.policy = p }
}

// WithClock sets the clock used to date returns.
func WithClock(now func() time.Time) RentalOption {
	return func(s *RentalService) { s.now = now }
}

// NewRentalService wires a rental service; books flips availability.
func NewRentalService(stores *Stores, books *BookService, history *History, logger *zap.Logger, opts ...RentalOption) *RentalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RentalService{
		stores:  stores,
		books:   books,
		history: history,
		policy:  ReturnStamp,
		now:     time.Now,
		logger:  logger.Named("rentals"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the configured return policy.
func (s *RentalService) Policy() ReturnPolicy { return s.policy }

// RentBook rents the book titled bookTitle to clientID.
func (s *RentalService) RentBook(rentalID, clientID, bookTitle, rentedDate string) (Rental, error) {
	clientID = strings.TrimSpace(clientID)
	if _, err := s.stores.Clients.Get(clientID); err != nil {
		return Rental{}, err
	}
	book, err := findBookByTitle(s.stores.Books, bookTitle)
	if err != nil {
		return Rental{}, err
	}
	if !book.Available {
		return Rental{}, fmt.Errorf("book %q is not available: %w", book.Title, ErrInvalidOperation)
	}

	rental := Rental{
		ID:         strings.TrimSpace(rentalID),
		BookID:     book.ID,
		ClientID:   clientID,
		RentedDate: strings.TrimSpace(rentedDate),
	}
	if err := validateEntity(rental); err != nil {
		return Rental{}, err
	}
	if err := s.stores.Rentals.Add(rental); err != nil {
		return Rental{}, err
	}
	created := NewOperation(s.stores, Change{Entity: EntityRental, Action: ActionCreate, After: rental})
	flip, err := s.books.setAvailability(book.ID, false)
	if err != nil {
		return Rental{}, rollback(err, []Command{created})
	}

	s.history.Record(NewCascadedOperation(created, NewOperation(s.stores, flip)))
	s.logger.Debug("book rented", zap.String("rental", rental.ID), zap.String("book", book.ID), zap.String("client", clientID))
	return rental, nil
}

// ReturnBook ends the active rental of the book titled bookTitle, dated today.
func (s *RentalService) ReturnBook(bookTitle string) (Rental, error) {
	return s.ReturnBookOn(bookTitle, s.now().Format(DateLayout))
}

// ReturnBookOn ends the active rental of the book titled bookTitle with the
// given return date.
func (s *RentalService) ReturnBookOn(bookTitle, returnedDate string) (Rental, error) {
	book, err := findBookByTitle(s.stores.Books, bookTitle)
	if err != nil {
		return Rental{}, err
	}
	active, ok := s.stores.Rentals.Find(func(r Rental) bool { return r.BookID == book.ID && r.Active() })
	if !ok {
		return Rental{}, fmt.Errorf("book %q is not currently rented: %w", book.Title, ErrInvalidOperation)
	}

	var rentalChange Change
	switch s.policy {
	case ReturnDelete:
		if _, err := s.stores.Rentals.Remove(active.ID); err != nil {
			return Rental{}, err
		}
		rentalChange = Change{Entity: EntityRental, Action: ActionDelete, Before: active}
	default:
		returned := active
		returned.ReturnedDate = strings.TrimSpace(returnedDate)
		if err := validateEntity(returned); err != nil {
			return Rental{}, err
		}
		// Both dates are DateLayout, so string order is date order.
		if returned.ReturnedDate < active.RentedDate {
			return Rental{}, fmt.Errorf("return date %s is before rented date %s: %w",
				returned.ReturnedDate, active.RentedDate, ErrInvalidOperation)
		}
		if err := s.stores.Rentals.Update(returned); err != nil {
			return Rental{}, err
		}
		rentalChange = Change{Entity: EntityRental, Action: ActionUpdate, Before: active, After: returned}
		active = returned
	}

	ended := NewOperation(s.stores, rentalChange)
	flip, err := s.books.setAvailability(book.ID, true)
	if err != nil {
		return Rental{}, rollback(err, []Command{ended})
	}
	s.history.Record(NewCascadedOperation(ended, NewOperation(s.stores, flip)))
	s.logger.Debug("book returned", zap.String("rental", active.ID), zap.String("policy", string(s.policy)))
	return active, nil
}

// ------------------ Reads ------------------

// GetRental returns the rental with the given id.
func (s *RentalService) GetRental(id string) (Rental, error) { return s.stores.Rentals.Get(id) }

// ListRentals returns every rental, returned ones included, in insertion order.
func (s *RentalService) ListRentals() []Rental { return slices.Collect(s.stores.Rentals.All()) }

// ActiveRentals returns the rentals whose book has not been returned.
func (s *RentalService) ActiveRentals() []Rental {
	var out []Rental
	for r := range s.stores.Rentals.All() {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// RentalsForBook returns the rentals of the book with the given id.
func (s *RentalService) RentalsForBook(bookID string) []Rental {
	var out []Rental
	for r := range s.stores.Rentals.All() {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out
}

// RentalsForClient returns the rentals of the client with the given id.
func (s *RentalService) RentalsForClient(clientID string) []Rental {
	var out []Rental
	for r := range s.stores.Rentals.All() {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	return out
}
