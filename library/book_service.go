package library

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// BookService exposes book operations; every mutation is recorded in the
// history as exactly one Command.
type BookService struct {
	stores  *Stores
	history *History
	logger  *zap.Logger
}

// NewBookService wires a book service over stores and history.
func NewBookService(stores *Stores, history *History, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{stores: stores, history: history, logger: logger.Named("books")}
}

// ------------------ Mutations ------------------

// AddBook inserts an available book.
func (s *BookService) AddBook(id, title, author string) (Book, error) {
	book := Book{
		ID:        strings.TrimSpace(id),
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Available: true,
	}
	if err := validateEntity(book); err != nil {
		return Book{}, err
	}
	if err := s.stores.Books.Add(book); err != nil {
		return Book{}, err
	}
	s.history.Record(NewOperation(s.stores, Change{Entity: EntityBook, Action: ActionCreate, After: book}))
	s.logger.Debug("book added", zap.String("id", book.ID))
	return book, nil
}

// RemoveBook deletes the first book whose title matches (case-insensitive)
// together with every rental of that book, as one Command.
func (s *BookService) RemoveBook(title string) (Book, error) {
	book, err := findBookByTitle(s.stores.Books, title)
	if err != nil {
		return Book{}, err
	}

	var doomed []Rental
	for r := range s.stores.Rentals.All() {
		if r.BookID == book.ID {
			doomed = append(doomed, r)
		}
	}

	steps := make([]Command, 0, len(doomed)+1)
	for _, r := range doomed {
		if _, err := s.stores.Rentals.Remove(r.ID); err != nil {
			return Book{}, rollback(err, steps)
		}
		steps = append(steps, NewOperation(s.stores, Change{Entity: EntityRental, Action: ActionDelete, Before: r}))
	}
	if _, err := s.stores.Books.Remove(book.ID); err != nil {
		return Book{}, rollback(err, steps)
	}
	steps = append(steps, NewOperation(s.stores, Change{Entity: EntityBook, Action: ActionDelete, Before: book}))

	s.history.Record(NewCascadedOperation(steps...).PrimaryAt(len(steps) - 1))
	s.logger.Debug("book removed", zap.String("id", book.ID), zap.Int("rentals", len(doomed)))
	return book, nil
}

// UpdateBook replaces the title and author of the book with the given id.
func (s *BookService) UpdateBook(id, title, author string) (Book, error) {
	before, err := s.stores.Books.Get(strings.TrimSpace(id))
	if err != nil {
		return Book{}, err
	}
	after := before
	after.Title = strings.TrimSpace(title)
	after.Author = strings.TrimSpace(author)
	if err := validateEntity(after); err != nil {
		return Book{}, err
	}
	if err := s.stores.Books.Update(after); err != nil {
		return Book{}, err
	}
	s.history.Record(NewOperation(s.stores, Change{Entity: EntityBook, Action: ActionUpdate, Before: before, After: after}))
	return after, nil
}

// setAvailability flips the flag without recording; callers fold the
// returned change into their own Command.
func (s *BookService) setAvailability(id string, available bool) (Change, error) {
	before, err := s.stores.Books.Get(id)
	if err != nil {
		return Change{}, err
	}
	after := before
	after.Available = available
	if err := s.stores.Books.Update(after); err != nil {
		return Change{}, err
	}
	return Change{Entity: EntityBook, Action: ActionUpdate, Before: before, After: after}, nil
}

// ------------------ Reads ------------------

// GetBook returns the book with the given id.
func (s *BookService) GetBook(id string) (Book, error) { return s.stores.Books.Get(id) }

// IsAvailable reports the availability flag of the book with the given id.
func (s *BookService) IsAvailable(id string) (bool, error) {
	b, err := s.stores.Books.Get(id)
	if err != nil {
		return false, err
	}
	return b.Available, nil
}

// FindByTitle returns the first book whose title equals title, ignoring case.
func (s *BookService) FindByTitle(title string) (Book, error) {
	return findBookByTitle(s.stores.Books, title)
}

// ListBooks returns every book in insertion order.
func (s *BookService) ListBooks() []Book { return slices.Collect(s.stores.Books.All()) }

// SearchByID returns the books whose id contains term, ignoring case.
func (s *BookService) SearchByID(term string) []Book {
	return search(s.stores.Books.All(), term, func(b Book) string { return b.ID })
}

// SearchByTitle returns the books whose title contains term, ignoring case.
func (s *BookService) SearchByTitle(term string) []Book {
	return search(s.stores.Books.All(), term, func(b Book) string { return b.Title })
}

// SearchByAuthor returns the books whose author contains term, ignoring case.
func (s *BookService) SearchByAuthor(term string) []Book {
	return search(s.stores.Books.All(), term, func(b Book) string { return b.Author })
}

func findBookByTitle(books Repository[Book], title string) (Book, error) {
	title = strings.TrimSpace(title)
	b, ok := books.Find(func(b Book) bool { return strings.EqualFold(b.Title, title) })
	if !ok {
		return Book{}, fmt.Errorf("book titled %q: %w", title, ErrNotFound)
	}
	return b, nil
}
