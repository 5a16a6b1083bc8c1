package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"library-rentals/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runScript(t *testing.T, mgr *library.LibraryManager, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	r := newREPL(mgr, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, false)
	r.now = func() time.Time { return time.Date(2023, 1, 10, 9, 0, 0, 0, time.UTC) }
	r.run()
	return out.String()
}

func TestREPLRentReturnUndo(t *testing.T) {
	mgr := library.NewMemoryManager(zap.NewNop())
	out := runScript(t, mgr,
		"add book", "Dune", "Frank Herbert",
		"add client", "Ana",
		"rent", "ana", "dune", "2023-01-01",
		"return", "DUNE", "2023-01-05",
		"stats clients",
		"undo",
		"undo",
		"history",
		"bogus",
		"exit",
		"list books",
	)

	assert.Contains(t, out, "Added book")
	assert.Contains(t, out, "Book 'dune' rented to Ana")
	assert.Contains(t, out, "1. Ana: 4")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "(more operations can be redone)")
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"), "commands after exit are ignored")

	books := mgr.ListBooks()
	require.Len(t, books, 1)
	assert.True(t, books[0].Available)
	assert.Empty(t, mgr.ListRentals())
	assert.Len(t, mgr.History(), 2)
}

func TestREPLDefaultsToToday(t *testing.T) {
	mgr := library.NewMemoryManager(zap.NewNop())
	runScript(t, mgr,
		"add book", "Emma", "Jane Austen",
		"add client", "Bob",
		"rent", "Bob", "Emma", "",
		"return", "Emma", "",
	)
	rentals := mgr.ListRentals()
	require.Len(t, rentals, 1)
	assert.Equal(t, "2023-01-10", rentals[0].RentedDate)
	assert.Equal(t, "2023-01-10", rentals[0].ReturnedDate)
}

func TestREPLErrorsAndEmptyHistory(t *testing.T) {
	mgr := library.NewMemoryManager(zap.NewNop())
	out := runScript(t, mgr,
		"undo",
		"redo",
		"history",
		"rent", "nobody",
		"search book", "isbn", "123",
		"remove book", "Missing",
	)
	assert.Contains(t, out, "Nothing to undo.")
	assert.Contains(t, out, "Nothing to redo.")
	assert.Contains(t, out, "History is empty.")
	assert.Equal(t, 3, strings.Count(out, "Error: "))
}

func TestREPLUpdateKeepsBlankFields(t *testing.T) {
	mgr := library.NewMemoryManager(zap.NewNop())
	_, err := mgr.AddBook("B1", "Dune", "Herbert")
	require.NoError(t, err)

	runScript(t, mgr, "update book", "dune", "", "Frank Herbert")
	b, err := mgr.GetBook("B1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
}

func TestREPLMetrics(t *testing.T) {
	mgr := library.NewMemoryManager(zap.NewNop())
	out := runScript(t, mgr, "add client", "Ana", "metrics")
	assert.Contains(t, out, `library_commands_recorded_total{action="create",entity="client"} 1`)
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "Ion Creangă", truncateString("Ion Creangă", 11))
	assert.Equal(t, "Amintiri...", truncateString("Amintiri din copilărie", 11))
	assert.Equal(t, "Ămi...", truncateString("Ămintiri", 6))
}
