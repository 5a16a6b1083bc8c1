package library

import (
	"fmt"
	"strings"
)

// DateLayout is the format of rental dates.
const DateLayout = "2006-01-02"

// NotReturned is how an active rental's return date is displayed and how
// legacy data files spell it. Stored rentals use the empty string instead.
const NotReturned = "not returned"

// Book represents a book and its current availability.
type Book struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Available bool   `json:"available"`
}

// EntityID implements Entity.
func (b Book) EntityID() string { return b.ID }

func (b Book) String() string {
	return fmt.Sprintf("ID: %s | %s by %s", b.ID, b.Title, b.Author)
}

// Client represents a registered library client.
type Client struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// EntityID implements Entity.
func (c Client) EntityID() string { return c.ID }

func (c Client) String() string {
	return fmt.Sprintf("ID: %s | %s", c.ID, c.Name)
}

// Rental links a book to the client who rented it. An empty ReturnedDate
// marks the rental as active.
type Rental struct {
	ID           string `json:"id" validate:"required"`
	BookID       string `json:"book_id" validate:"required"`
	ClientID     string `json:"client_id" validate:"required"`
	RentedDate   string `json:"rented_date" validate:"required,datetime=2006-01-02"`
	ReturnedDate string `json:"returned_date" validate:"omitempty,datetime=2006-01-02"`
}

// EntityID implements Entity.
func (r Rental) EntityID() string { return r.ID }

// Active reports whether the book has not been returned yet.
func (r Rental) Active() bool { return r.ReturnedDate == "" }

func (r Rental) String() string {
	returned := r.ReturnedDate
	if returned == "" {
		returned = NotReturned
	}
	return fmt.Sprintf("Rental ID: %s | Book: %s | Client: %s | Rented: %s | Returned: %s",
		r.ID, r.BookID, r.ClientID, r.RentedDate, returned)
}

// normalizeReturned maps the legacy "not returned" spelling to the empty string.
func normalizeReturned(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NotReturned) {
		return ""
	}
	return s
}

// Stat is one row of a statistics report.
type Stat struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	Value  int    `json:"value"`
}

func (s Stat) String() string {
	if s.Detail != "" {
		return fmt.Sprintf("%s (%s): %d", s.Name, s.Detail, s.Value)
	}
	return fmt.Sprintf("%s: %d", s.Name, s.Value)
}
