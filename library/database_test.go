package library

import (
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseEmptyTables(t *testing.T) {
	db := tempDB(t)
	books, err := db.Books().Load()
	if err != nil {
		t.Fatalf("load books: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("want no books, got %d", len(books))
	}
}

func TestDatabaseRoundTripKeepsOrder(t *testing.T) {
	db := tempDB(t)
	in := []Book{
		{ID: "b2", Title: "Second", Author: "Z", Available: true},
		{ID: "b1", Title: "First", Author: "A", Available: false},
	}
	if err := db.Books().Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := db.Books().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	// A later save replaces the table.
	if err := db.Books().Save(in[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, _ = db.Books().Load()
	if len(out) != 1 || out[0].ID != "b2" {
		t.Fatalf("expected only b2, got %+v", out)
	}
}

func TestDatabaseRentalsAndClients(t *testing.T) {
	db := tempDB(t)
	clients := []Client{{ID: "c1", Name: "Ana"}}
	rentals := []Rental{
		{ID: "r1", BookID: "b1", ClientID: "c1", RentedDate: "2023-01-01"},
		{ID: "r2", BookID: "b2", ClientID: "c1", RentedDate: "2023-01-01", ReturnedDate: "2023-01-03"},
	}
	if err := db.Clients().Save(clients); err != nil {
		t.Fatalf("save clients: %v", err)
	}
	if err := db.Rentals().Save(rentals); err != nil {
		t.Fatalf("save rentals: %v", err)
	}

	gotClients, err := db.Clients().Load()
	if err != nil || len(gotClients) != 1 || gotClients[0] != clients[0] {
		t.Fatalf("clients: %+v, %v", gotClients, err)
	}
	gotRentals, err := db.Rentals().Load()
	if err != nil {
		t.Fatalf("load rentals: %v", err)
	}
	if len(gotRentals) != 2 || !gotRentals[0].Active() || gotRentals[1].ReturnedDate != "2023-01-03" {
		t.Fatalf("rentals: %+v", gotRentals)
	}
}

func TestDatabaseReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Clients().Save([]Client{{ID: "c1", Name: "Ana"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	db.Close()

	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := db.Clients().Load()
	if err != nil || len(got) != 1 {
		t.Fatalf("after reopen: %+v, %v", got, err)
	}
}
