package library

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// ClientService exposes client operations.
type ClientService struct {
	stores  *Stores
	history *History
	logger  *zap.Logger
}

// NewClientService wires a client service over stores and history.
func NewClientService(stores *Stores, history *History, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{stores: stores, history: history, logger: logger.Named("clients")}
}

// AddClient registers a client and records the insert.
func (s *ClientService) AddClient(id, name string) (Client, error) {
	client := Client{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
	if err := validateEntity(client); err != nil {
		return Client{}, err
	}
	if err := s.stores.Clients.Add(client); err != nil {
		return Client{}, err
	}
	s.history.Record(NewOperation(s.stores, Change{Entity: EntityClient, Action: ActionCreate, After: client}))
	return client, nil
}

// RemoveClient deletes the client and all of their rentals. Books whose
// active rental goes away become available again. Everything is one Command.
func (s *ClientService) RemoveClient(id string) (Client, error) {
	client, err := s.stores.Clients.Get(strings.TrimSpace(id))
	if err != nil {
		return Client{}, err
	}

	var rentals []Rental
	for r := range s.stores.Rentals.All() {
		if r.ClientID == client.ID {
			rentals = append(rentals, r)
		}
	}

	var steps []Command
	for _, r := range rentals {
		if _, err := s.stores.Rentals.Remove(r.ID); err != nil {
			return Client{}, rollback(err, steps)
		}
		steps = append(steps, NewOperation(s.stores, Change{Entity: EntityRental, Action: ActionDelete, Before: r}))
		if !r.Active() {
			continue
		}
		book, err := s.stores.Books.Get(r.BookID)
		if err != nil {
			s.logger.Warn("active rental references missing book", zap.String("rental", r.ID), zap.String("book", r.BookID))
			continue
		}
		freed := book
		freed.Available = true
		if err := s.stores.Books.Update(freed); err != nil {
			return Client{}, rollback(err, steps)
		}
		steps = append(steps, NewOperation(s.stores, Change{Entity: EntityBook, Action: ActionUpdate, Before: book, After: freed}))
	}
	if _, err := s.stores.Clients.Remove(client.ID); err != nil {
		return Client{}, rollback(err, steps)
	}
	steps = append(steps, NewOperation(s.stores, Change{Entity: EntityClient, Action: ActionDelete, Before: client}))

	s.history.Record(NewCascadedOperation(steps...).PrimaryAt(len(steps) - 1))
	s.logger.Debug("client removed", zap.String("id", client.ID), zap.Int("rentals", len(rentals)))
	return client, nil
}

// UpdateClient renames the client with the given id.
func (s *ClientService) UpdateClient(id, name string) (Client, error) {
	before, err := s.stores.Clients.Get(strings.TrimSpace(id))
	if err != nil {
		return Client{}, err
	}
	after := before
	after.Name = strings.TrimSpace(name)
	if err := validateEntity(after); err != nil {
		return Client{}, err
	}
	if err := s.stores.Clients.Update(after); err != nil {
		return Client{}, err
	}
	s.history.Record(NewOperation(s.stores, Change{Entity: EntityClient, Action: ActionUpdate, Before: before, After: after}))
	return after, nil
}

// GetClient returns the client with the given id.
func (s *ClientService) GetClient(id string) (Client, error) { return s.stores.Clients.Get(id) }

// FindByName returns the first client whose name equals name, ignoring case.
func (s *ClientService) FindByName(name string) (Client, error) {
	name = strings.TrimSpace(name)
	c, ok := s.stores.Clients.Find(func(c Client) bool { return strings.EqualFold(c.Name, name) })
	if !ok {
		return Client{}, fmt.Errorf("client named %q: %w", name, ErrNotFound)
	}
	return c, nil
}

// ListClients returns every client in insertion order.
func (s *ClientService) ListClients() []Client { return slices.Collect(s.stores.Clients.All()) }

// SearchByID returns the clients whose id contains term, ignoring case.
func (s *ClientService) SearchByID(term string) []Client {
	return search(s.stores.Clients.All(), term, func(c Client) string { return c.ID })
}

// SearchByName returns the clients whose name contains term, ignoring case.
func (s *ClientService) SearchByName(term string) []Client {
	return search(s.stores.Clients.All(), term, func(c Client) string { return c.Name })
}
