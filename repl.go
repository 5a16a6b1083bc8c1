package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"library-rentals/library"

	"github.com/google/uuid"
)

// repl reads one command per line and prompts for its arguments on the
// following lines. Prompts and the banner are only printed for terminals so
// scripted input produces clean output.
type repl struct {
	mgr         *library.LibraryManager
	sc          *bufio.Scanner
	out         io.Writer
	interactive bool
	now         func() time.Time
}

func newREPL(mgr *library.LibraryManager, in io.Reader, out io.Writer, interactive bool) *repl {
	return &repl{
		mgr:         mgr,
		sc:          bufio.NewScanner(in),
		out:         out,
		interactive: interactive,
		now:         time.Now,
	}
}

// newID returns a short random identifier for books, clients and rentals.
func newID() string {
	return uuid.NewString()[:8]
}

func (r *repl) run() {
	if r.interactive {
		r.printHelp()
	}
	for {
		r.prompt("\n> ")
		if !r.sc.Scan() {
			return
		}
		cmd := strings.Join(strings.Fields(strings.ToLower(r.sc.Text())), " ")
		if cmd == "" {
			continue
		}
		if cmd == "exit" {
			fmt.Fprintln(r.out, "Goodbye!")
			return
		}
		r.dispatch(cmd)
	}
}

func (r *repl) dispatch(cmd string) {
	switch cmd {
	case "add book":
		r.handleAddBook()
	case "remove book":
		r.handleRemoveBook()
	case "update book":
		r.handleUpdateBook()
	case "list books":
		printBooks(r.out, r.mgr.ListBooks())
	case "add client":
		r.handleAddClient()
	case "remove client":
		r.handleRemoveClient()
	case "update client":
		r.handleUpdateClient()
	case "list clients":
		printClients(r.out, r.mgr.ListClients())
	case "rent":
		r.handleRent()
	case "return":
		r.handleReturn()
	case "search book":
		r.handleSearchBooks()
	case "search client":
		r.handleSearchClients()
	case "list rentals":
		r.handleListRentals()
	case "undo":
		r.handleUndo()
	case "redo":
		r.handleRedo()
	case "history":
		r.handleHistory()
	case "stats books", "stats clients", "stats authors", "stats":
		which := strings.TrimPrefix(strings.TrimPrefix(cmd, "stats"), " ")
		if which == "" {
			which = "all"
		}
		if err := printReport(r.out, r.mgr, which, 5); err != nil {
			r.fail(err)
		}
	case "metrics":
		if err := r.mgr.Metrics().WriteText(r.out); err != nil {
			r.fail(err)
		}
	case "help":
		r.printHelp()
	default:
		fmt.Fprintln(r.out, "Unknown command. Type 'help' to see the available commands.")
	}
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, "Welcome to the Library Rental System!")
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out, "  Books: add book, remove book, update book, list books, search book")
	fmt.Fprintln(r.out, "  Clients: add client, remove client, update client, list clients, search client")
	fmt.Fprintln(r.out, "  Rentals: rent, return, list rentals")
	fmt.Fprintln(r.out, "  History: undo, redo, history")
	fmt.Fprintln(r.out, "  Reports: stats, stats books, stats clients, stats authors, metrics")
	fmt.Fprintln(r.out, "  System: help, exit")
}

func (r *repl) prompt(s string) {
	if r.interactive {
		fmt.Fprint(r.out, s)
	}
}

// ask prompts for one line. ok is false when input ended.
func (r *repl) ask(label string) (string, bool) {
	r.prompt(label + ": ")
	if !r.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(r.sc.Text()), true
}

func (r *repl) fail(err error) {
	fmt.Fprintf(r.out, "Error: %v\n", err)
}

func (r *repl) today() string { return r.now().Format(library.DateLayout) }

// ------------------ Books ------------------

func (r *repl) handleAddBook() {
	title, ok := r.ask("Title")
	if !ok {
		return
	}
	author, ok := r.ask("Author")
	if !ok {
		return
	}
	book, err := r.mgr.AddBook(newID(), title, author)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Added book %s\n", book)
}

func (r *repl) handleRemoveBook() {
	title, ok := r.ask("Title")
	if !ok {
		return
	}
	book, err := r.mgr.RemoveBook(title)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Removed book '%s' and its rentals\n", book.Title)
}

func (r *repl) handleUpdateBook() {
	key, ok := r.ask("Book ID or title")
	if !ok {
		return
	}
	book, err := r.mgr.FindBook(key)
	if err != nil {
		r.fail(err)
		return
	}
	title, ok := r.ask(fmt.Sprintf("New title [%s]", book.Title))
	if !ok {
		return
	}
	author, ok := r.ask(fmt.Sprintf("New author [%s]", book.Author))
	if !ok {
		return
	}
	if title == "" {
		title = book.Title
	}
	if author == "" {
		author = book.Author
	}
	updated, err := r.mgr.UpdateBook(book.ID, title, author)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Updated book %s\n", updated)
}

func (r *repl) handleSearchBooks() {
	field, ok := r.ask("Search by (id/title/author)")
	if !ok {
		return
	}
	query, ok := r.ask("Query")
	if !ok {
		return
	}
	books, err := r.mgr.SearchBooks(strings.ToLower(field), query)
	if err != nil {
		r.fail(err)
		return
	}
	if len(books) == 0 {
		fmt.Fprintf(r.out, "No books found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(r.out, "Found %d book(s) matching '%s':\n", len(books), query)
	printBooks(r.out, books)
}

// ------------------ Clients ------------------

func (r *repl) handleAddClient() {
	name, ok := r.ask("Name")
	if !ok {
		return
	}
	client, err := r.mgr.AddClient(newID(), name)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Added client %s\n", client)
}

func (r *repl) handleRemoveClient() {
	key, ok := r.ask("Client ID or name")
	if !ok {
		return
	}
	client, err := r.mgr.FindClient(key)
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := r.mgr.RemoveClient(client.ID); err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Removed client '%s' and their rentals\n", client.Name)
}

func (r *repl) handleUpdateClient() {
	key, ok := r.ask("Client ID or name")
	if !ok {
		return
	}
	client, err := r.mgr.FindClient(key)
	if err != nil {
		r.fail(err)
		return
	}
	name, ok := r.ask(fmt.Sprintf("New name [%s]", client.Name))
	if !ok {
		return
	}
	if name == "" {
		name = client.Name
	}
	updated, err := r.mgr.UpdateClient(client.ID, name)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Updated client %s\n", updated)
}

func (r *repl) handleSearchClients() {
	field, ok := r.ask("Search by (id/name)")
	if !ok {
		return
	}
	query, ok := r.ask("Query")
	if !ok {
		return
	}
	clients, err := r.mgr.SearchClients(strings.ToLower(field), query)
	if err != nil {
		r.fail(err)
		return
	}
	if len(clients) == 0 {
		fmt.Fprintf(r.out, "No clients found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(r.out, "Found %d client(s) matching '%s':\n", len(clients), query)
	printClients(r.out, clients)
}

// ------------------ Rentals ------------------

func (r *repl) handleRent() {
	key, ok := r.ask("Client ID or name")
	if !ok {
		return
	}
	client, err := r.mgr.FindClient(key)
	if err != nil {
		r.fail(err)
		return
	}
	title, ok := r.ask("Book title")
	if !ok {
		return
	}
	date, ok := r.ask(fmt.Sprintf("Rented date [%s]", r.today()))
	if !ok {
		return
	}
	if date == "" {
		date = r.today()
	}
	rental, err := r.mgr.RentBook(newID(), client.ID, title, date)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Book '%s' rented to %s (rental %s)\n", title, client.Name, rental.ID)
}

func (r *repl) handleReturn() {
	title, ok := r.ask("Book title")
	if !ok {
		return
	}
	date, ok := r.ask(fmt.Sprintf("Return date [%s]", r.today()))
	if !ok {
		return
	}
	if date == "" {
		date = r.today()
	}
	rental, err := r.mgr.ReturnBookOn(title, date)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Book '%s' returned (rental %s)\n", title, rental.ID)
	fmt.Fprintln(r.out, "Book is now available for rent")
}

func (r *repl) handleListRentals() {
	key, ok := r.ask("Client ID or name (or press Enter for all rentals)")
	if !ok {
		return
	}
	if key == "" {
		printRentals(r.out, r.mgr.ListRentals())
		return
	}
	client, err := r.mgr.FindClient(key)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.out, "Rentals of %s:\n", client.Name)
	printRentals(r.out, r.mgr.RentalsForClient(client.ID))
}

// ------------------ History ------------------

func (r *repl) handleUndo() {
	if err := r.mgr.Undo(); err != nil {
		if errors.Is(err, library.ErrNoOperationsToUndo) {
			fmt.Fprintln(r.out, "Nothing to undo.")
			return
		}
		r.fail(err)
		return
	}
	fmt.Fprintln(r.out, "Undone.")
}

func (r *repl) handleRedo() {
	if err := r.mgr.Redo(); err != nil {
		if errors.Is(err, library.ErrNoOperationsToRedo) {
			fmt.Fprintln(r.out, "Nothing to redo.")
			return
		}
		r.fail(err)
		return
	}
	fmt.Fprintln(r.out, "Redone.")
}

func (r *repl) handleHistory() {
	entries := r.mgr.History()
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "History is empty.")
		return
	}
	for i, changes := range entries {
		fmt.Fprintf(r.out, "%d.\n", i+1)
		for _, c := range changes {
			fmt.Fprintf(r.out, "   %s\n", c)
		}
	}
	if r.mgr.CanRedo() {
		fmt.Fprintln(r.out, "(more operations can be redone)")
	}
}
