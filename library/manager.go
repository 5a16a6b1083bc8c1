package library

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// LibraryManager is a thin façade over the services and the history log,
// keeping CLI code simple. Every method holds one lock for the whole logical
// operation so undo and redo see compound mutations atomically.
type LibraryManager struct {
	mu sync.Mutex

	stores  *Stores
	history *History
	books   *BookService
	clients *ClientService
	rentals *RentalService
	stats   *StatisticsService

	metrics *Metrics
	logger  *zap.Logger
	closer  io.Closer
}

// NewLibraryManager opens the stores described by settings.
func NewLibraryManager(settings Settings, logger *zap.Logger) (*LibraryManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy, err := ParseReturnPolicy(settings.ReturnPolicy)
	if err != nil {
		return nil, err
	}
	metrics := NewMetrics()
	stores, closer, err := OpenStores(settings, logger, metrics)
	if err != nil {
		return nil, err
	}
	lm := newManager(stores, metrics, logger, WithReturnPolicy(policy))
	lm.closer = closer
	logger.Info("library opened",
		zap.String("books", settings.BackendFor("books")),
		zap.String("clients", settings.BackendFor("clients")),
		zap.String("rentals", settings.BackendFor("rentals")),
		zap.String("return_policy", string(policy)))
	return lm, nil
}

// NewMemoryManager returns a manager whose stores persist nothing.
func NewMemoryManager(logger *zap.Logger, opts ...RentalOption) *LibraryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := NewMetrics()
	return newManager(NewMemoryStores(logger, metrics), metrics, logger, opts...)
}

func newManager(stores *Stores, metrics *Metrics, logger *zap.Logger, opts ...RentalOption) *LibraryManager {
	history := NewHistory(logger.Named("history"), metrics)
	books := NewBookService(stores, history, logger)
	return &LibraryManager{
		stores:  stores,
		history: history,
		books:   books,
		clients: NewClientService(stores, history, logger),
		rentals: NewRentalService(stores, books, history, logger, opts...),
		stats:   NewStatisticsService(stores, logger),
		metrics: metrics,
		logger:  logger,
		closer:  nopCloser{},
	}
}

// Close releases the persistence backends.
func (lm *LibraryManager) Close() error { return lm.closer.Close() }

// Metrics returns the manager's metrics.
func (lm *LibraryManager) Metrics() *Metrics { return lm.metrics }

// ------------------ Book helpers ------------------

// AddBook adds an available book.
func (lm *LibraryManager) AddBook(id, title, author string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.AddBook(id, title, author)
}

// RemoveBook removes the book titled title together with its rentals.
func (lm *LibraryManager) RemoveBook(title string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.RemoveBook(title)
}

// UpdateBook changes the title and author of a book.
func (lm *LibraryManager) UpdateBook(id, title, author string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.UpdateBook(id, title, author)
}

// GetBook returns a book by id.
func (lm *LibraryManager) GetBook(id string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.GetBook(id)
}

// IsAvailable reports whether the book can be rented.
func (lm *LibraryManager) IsAvailable(id string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.IsAvailable(id)
}

// FindBook resolves a book by id, falling back to a case-insensitive title match.
func (lm *LibraryManager) FindBook(idOrTitle string) (Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if b, err := lm.books.GetBook(idOrTitle); err == nil {
		return b, nil
	}
	return lm.books.FindByTitle(idOrTitle)
}

// ListBooks returns all books.
func (lm *LibraryManager) ListBooks() []Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.books.ListBooks()
}

// SearchBooks matches term against the field named by "id", "title" or "author".
func (lm *LibraryManager) SearchBooks(field, term string) ([]Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	switch field {
	case "id":
		return lm.books.SearchByID(term), nil
	case "title":
		return lm.books.SearchByTitle(term), nil
	case "author":
		return lm.books.SearchByAuthor(term), nil
	default:
		return nil, invalidSearchField(field)
	}
}

// ------------------ Client helpers ------------------

// AddClient registers a client.
func (lm *LibraryManager) AddClient(id, name string) (Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.clients.AddClient(id, name)
}

// RemoveClient removes a client and their rentals, freeing rented books.
func (lm *LibraryManager) RemoveClient(id string) (Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.clients.RemoveClient(id)
}

// UpdateClient renames a client.
func (lm *LibraryManager) UpdateClient(id, name string) (Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.clients.UpdateClient(id, name)
}

// GetClient returns a client by id.
func (lm *LibraryManager) GetClient(id string) (Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.clients.GetClient(id)
}

// FindClient resolves a client by id, falling back to a case-insensitive name match.
func (lm *LibraryManager) FindClient(idOrName string) (Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if c, err := lm.clients.GetClient(idOrName); err == nil {
		return c, nil
	}
	return lm.clients.FindByName(idOrName)
}

// ListClients returns all clients.
func (lm *LibraryManager) ListClients() []Client {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.clients.ListClients()
}

// SearchClients matches term against the field named by "id" or "name".
func (lm *LibraryManager) SearchClients(field, term string) ([]Client, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	switch field {
	case "id":
		return lm.clients.SearchByID(term), nil
	case "name":
		return lm.clients.SearchByName(term), nil
	default:
		return nil, invalidSearchField(field)
	}
}

// ------------------ Circulation ------------------

// RentBook rents the book titled bookTitle to a client.
func (lm *LibraryManager) RentBook(rentalID, clientID, bookTitle, rentedDate string) (Rental, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.RentBook(rentalID, clientID, bookTitle, rentedDate)
}

// ReturnBook ends the active rental of a book, dated today.
func (lm *LibraryManager) ReturnBook(bookTitle string) (Rental, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.ReturnBook(bookTitle)
}

// ReturnBookOn ends the active rental of a book on the given date.
func (lm *LibraryManager) ReturnBookOn(bookTitle, returnedDate string) (Rental, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.ReturnBookOn(bookTitle, returnedDate)
}

// ListRentals returns all rentals.
func (lm *LibraryManager) ListRentals() []Rental {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.ListRentals()
}

// ActiveRentals returns the rentals not yet returned.
func (lm *LibraryManager) ActiveRentals() []Rental {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.ActiveRentals()
}

// GetRental returns a rental by id.
func (lm *LibraryManager) GetRental(id string) (Rental, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.GetRental(id)
}

// RentalsForBook returns the rentals of one book.
func (lm *LibraryManager) RentalsForBook(bookID string) []Rental {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.RentalsForBook(bookID)
}

// RentalsForClient returns the rentals of one client.
func (lm *LibraryManager) RentalsForClient(clientID string) []Rental {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.rentals.RentalsForClient(clientID)
}

// ReturnPolicy reports how returned rentals are handled.
func (lm *LibraryManager) ReturnPolicy() ReturnPolicy { return lm.rentals.Policy() }

// ------------------ Statistics ------------------

// MostRentedBooks ranks books by rental count.
func (lm *LibraryManager) MostRentedBooks() []Stat {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.stats.MostRentedBooks()
}

// MostActiveClients ranks clients by days of returned rentals.
func (lm *LibraryManager) MostActiveClients() []Stat {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.stats.MostActiveClients()
}

// MostRentedAuthors ranks authors by rental count.
func (lm *LibraryManager) MostRentedAuthors() []Stat {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.stats.MostRentedAuthors()
}

// ------------------ History ------------------

// Undo reverts the most recent operation.
func (lm *LibraryManager) Undo() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.history.Undo()
}

// Redo re-applies the most recently undone operation.
func (lm *LibraryManager) Redo() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.history.Redo()
}

// CanUndo and CanRedo report whether Undo or Redo would do anything.
func (lm *LibraryManager) CanUndo() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.history.CanUndo()
}

func (lm *LibraryManager) CanRedo() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.history.CanRedo()
}

// History returns the changes of every applied command, oldest first.
func (lm *LibraryManager) History() [][]Change {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	applied := lm.history.Applied()
	out := make([][]Change, 0, len(applied))
	for _, cmd := range applied {
		out = append(out, cmd.Changes())
	}
	return out
}
