package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a SQLite file holding one table per store. Each table is
// rewritten in full on save.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// position keeps insertion order; rentals reference books and clients by
	// id only because every store is saved independently.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1,
            position INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS clients (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            position INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS rentals (
            id TEXT PRIMARY KEY,
            book_id TEXT NOT NULL,
            client_id TEXT NOT NULL,
            rented_date TEXT NOT NULL,
            returned_date TEXT NOT NULL DEFAULT '',
            position INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_rentals_book ON rentals(book_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Table backends
// ---------------------------------------------------------------------------

// sqlTable adapts one table to Backend.
type sqlTable[T Entity] struct {
	db     *sql.DB
	table  string
	query  string
	insert string
	scan   func(*sql.Rows) (T, error)
	args   func(T) []any
}

func (t *sqlTable[T]) Load() ([]T, error) {
	rows, err := t.db.Query(t.query)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Save replaces the table contents in one transaction.
func (t *sqlTable[T]) Save(items []T) error {
	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + t.table); err != nil {
		return fmt.Errorf("clear %s: %w", t.table, err)
	}
	stmt, err := tx.Prepare(t.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range items {
		if _, err := stmt.Exec(append(t.args(v), i)...); err != nil {
			return fmt.Errorf("insert %s %s: %w", t.table, v.EntityID(), err)
		}
	}
	return tx.Commit()
}

// Books returns the backend for the books table.
func (d *Database) Books() Backend[Book] {
	return &sqlTable[Book]{
		db:     d.db,
		table:  "books",
		query:  `SELECT id,title,author,available FROM books ORDER BY position`,
		insert: `INSERT INTO books(id,title,author,available,position) VALUES(?,?,?,?,?)`,
		scan: func(rows *sql.Rows) (Book, error) {
			var b Book
			err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Available)
			return b, err
		},
		args: func(b Book) []any { return []any{b.ID, b.Title, b.Author, b.Available} },
	}
}

// Clients returns the backend for the clients table.
func (d *Database) Clients() Backend[Client] {
	return &sqlTable[Client]{
		db:     d.db,
		table:  "clients",
		query:  `SELECT id,name FROM clients ORDER BY position`,
		insert: `INSERT INTO clients(id,name,position) VALUES(?,?,?)`,
		scan: func(rows *sql.Rows) (Client, error) {
			var c Client
			err := rows.Scan(&c.ID, &c.Name)
			return c, err
		},
		args: func(c Client) []any { return []any{c.ID, c.Name} },
	}
}

// Rentals returns the backend for the rentals table.
func (d *Database) Rentals() Backend[Rental] {
	return &sqlTable[Rental]{
		db:     d.db,
		table:  "rentals",
		query:  `SELECT id,book_id,client_id,rented_date,returned_date FROM rentals ORDER BY position`,
		insert: `INSERT INTO rentals(id,book_id,client_id,rented_date,returned_date,position) VALUES(?,?,?,?,?,?)`,
		scan: func(rows *sql.Rows) (Rental, error) {
			var r Rental
			err := rows.Scan(&r.ID, &r.BookID, &r.ClientID, &r.RentedDate, &r.ReturnedDate)
			r.ReturnedDate = normalizeReturned(r.ReturnedDate)
			return r, err
		},
		args: func(r Rental) []any { return []any{r.ID, r.BookID, r.ClientID, r.RentedDate, r.ReturnedDate} },
	}
}
