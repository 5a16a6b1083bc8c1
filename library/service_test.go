package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryManager(t *testing.T, opts ...RentalOption) *LibraryManager {
	t.Helper()
	return NewMemoryManager(zap.NewNop(), opts...)
}

func TestAddBookThenGet(t *testing.T) {
	lm := newMemoryManager(t)
	_, err := lm.AddBook("1", "T", "A")
	require.NoError(t, err)

	b, err := lm.GetBook("1")
	require.NoError(t, err)
	assert.Equal(t, Book{ID: "1", Title: "T", Author: "A", Available: true}, b)
}

func TestAddBookUndoRedo(t *testing.T) {
	lm := newMemoryManager(t)
	_, err := lm.AddBook("1", "T", "A")
	require.NoError(t, err)

	require.NoError(t, lm.Undo())
	assert.Empty(t, lm.ListBooks())
	_, err = lm.GetBook("1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, lm.Redo())
	b, err := lm.GetBook("1")
	require.NoError(t, err)
	assert.Equal(t, Book{ID: "1", Title: "T", Author: "A", Available: true}, b)
	assert.ErrorIs(t, lm.Redo(), ErrNoOperationsToRedo)
}

func TestAddBookValidation(t *testing.T) {
	lm := newMemoryManager(t)
	_, err := lm.AddBook("", "T", "A")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = lm.AddBook("1", "  ", "A")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = lm.AddClient("C1", "")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = lm.AddBook("1", "T", "A")
	require.NoError(t, err)
	_, err = lm.AddBook("1", "Other", "B")
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Len(t, lm.History(), 1, "failed operations are not recorded")
}

func TestUpdateBookAndClientUndo(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("1", "T", "A")
	lm.AddClient("C1", "Ana")

	_, err := lm.UpdateBook("1", "New", "B")
	require.NoError(t, err)
	_, err = lm.UpdateClient("C1", "Ana Maria")
	require.NoError(t, err)

	require.NoError(t, lm.Undo())
	c, _ := lm.GetClient("C1")
	assert.Equal(t, "Ana", c.Name)

	require.NoError(t, lm.Undo())
	b, _ := lm.GetBook("1")
	assert.Equal(t, "T", b.Title)
	assert.Equal(t, "A", b.Author)

	_, err = lm.UpdateBook("9", "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRentAndReturnScenario(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")

	_, err := lm.RentBook("R1", "C1", "Popular", "2023-01-01")
	require.NoError(t, err)
	avail, err := lm.IsAvailable("B1")
	require.NoError(t, err)
	assert.False(t, avail)

	r, err := lm.ReturnBookOn("Popular", "2023-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-05", r.ReturnedDate)
	avail, _ = lm.IsAvailable("B1")
	assert.True(t, avail)
	assert.Empty(t, lm.ActiveRentals())
	assert.Len(t, lm.ListRentals(), 1, "returned rental stays on record")
}

func TestReturnBeforeRentedDateIsRejected(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "One", "Auth")
	lm.AddClient("C1", "Ana")
	_, err := lm.RentBook("R1", "C1", "One", "2023-05-10")
	require.NoError(t, err)
	before := len(lm.History())

	_, err = lm.ReturnBookOn("One", "2023-05-01")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Len(t, lm.ActiveRentals(), 1)
	avail, _ := lm.IsAvailable("B1")
	assert.False(t, avail)
	assert.Len(t, lm.History(), before)
	assert.Empty(t, lm.MostActiveClients())

	// Same-day returns are fine.
	r, err := lm.ReturnBookOn("One", "2023-05-10")
	require.NoError(t, err)
	assert.Equal(t, "2023-05-10", r.ReturnedDate)
}

func TestReturnDeletePolicy(t *testing.T) {
	lm := newMemoryManager(t, WithReturnPolicy(ReturnDelete))
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")
	_, err := lm.RentBook("R1", "C1", "popular", "2023-01-01")
	require.NoError(t, err)

	_, err = lm.ReturnBook("POPULAR")
	require.NoError(t, err)
	assert.Empty(t, lm.ListRentals())
	avail, _ := lm.IsAvailable("B1")
	assert.True(t, avail)

	// Undo brings back the active rental and the unavailable book together.
	require.NoError(t, lm.Undo())
	assert.Len(t, lm.ActiveRentals(), 1)
	avail, _ = lm.IsAvailable("B1")
	assert.False(t, avail)
}

func TestReturnBookUsesClock(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC) }
	lm := newMemoryManager(t, WithClock(clock))
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")
	lm.RentBook("R1", "C1", "Popular", "2024-03-01")

	r, err := lm.ReturnBook("Popular")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", r.ReturnedDate)
}

func TestRentUnavailableBookChangesNothing(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")
	lm.AddClient("C2", "Bob")
	_, err := lm.RentBook("R1", "C1", "Popular", "2023-01-01")
	require.NoError(t, err)
	before := len(lm.History())

	_, err = lm.RentBook("R2", "C2", "Popular", "2023-01-02")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Len(t, lm.ListRentals(), 1)
	assert.Len(t, lm.History(), before)
}

func TestRentErrors(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")

	_, err := lm.RentBook("R1", "nobody", "Popular", "2023-01-01")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = lm.RentBook("R1", "C1", "Missing", "2023-01-01")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = lm.RentBook("R1", "C1", "Popular", "01/01/2023")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = lm.ReturnBook("Popular")
	assert.ErrorIs(t, err, ErrInvalidOperation, "book is not rented")

	avail, _ := lm.IsAvailable("B1")
	assert.True(t, avail)
	assert.Empty(t, lm.ListRentals())
}

func TestRentUndoRedo(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddClient("C1", "Ana")
	lm.RentBook("R1", "C1", "Popular", "2023-01-01")

	require.NoError(t, lm.Undo())
	assert.Empty(t, lm.ListRentals())
	avail, _ := lm.IsAvailable("B1")
	assert.True(t, avail)

	require.NoError(t, lm.Redo())
	assert.Len(t, lm.ActiveRentals(), 1)
	avail, _ = lm.IsAvailable("B1")
	assert.False(t, avail)
}

func TestRemoveBookCascadesToRentals(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddBook("B2", "Other", "Auth")
	lm.AddClient("C1", "Ana")
	lm.RentBook("R1", "C1", "Popular", "2023-01-01")
	lm.ReturnBookOn("Popular", "2023-01-02")
	lm.RentBook("R2", "C1", "Popular", "2023-01-03")
	lm.RentBook("R3", "C1", "Other", "2023-01-03")

	removed, err := lm.RemoveBook("popular")
	require.NoError(t, err)
	assert.Equal(t, "B1", removed.ID)
	assert.Len(t, lm.ListBooks(), 1)
	rentals := lm.ListRentals()
	require.Len(t, rentals, 1)
	assert.Equal(t, "R3", rentals[0].ID)

	require.NoError(t, lm.Undo())
	assert.Len(t, lm.ListBooks(), 2)
	assert.Len(t, lm.ListRentals(), 3)
	avail, _ := lm.IsAvailable("B1")
	assert.False(t, avail)

	require.NoError(t, lm.Redo())
	assert.Len(t, lm.ListRentals(), 1)
	_, err = lm.GetBook("B1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lm.RemoveBook("Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveClientFreesBooks(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("B1", "Popular", "Auth")
	lm.AddBook("B2", "Other", "Auth")
	lm.AddClient("C1", "Ana")
	lm.AddClient("C2", "Bob")
	lm.RentBook("R1", "C1", "Popular", "2023-01-01")
	lm.RentBook("R2", "C2", "Other", "2023-01-01")

	_, err := lm.RemoveClient("C1")
	require.NoError(t, err)
	avail, _ := lm.IsAvailable("B1")
	assert.True(t, avail)
	assert.Len(t, lm.ListRentals(), 1)
	assert.Len(t, lm.ListClients(), 1)

	require.NoError(t, lm.Undo())
	avail, _ = lm.IsAvailable("B1")
	assert.False(t, avail)
	assert.Len(t, lm.ListRentals(), 2)
	c, err := lm.GetClient("C1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Name)

	_, err = lm.RemoveClient("C9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUndoAfterNewOperationDropsRedo(t *testing.T) {
	lm := newMemoryManager(t)
	lm.AddBook("1", "T", "A")
	require.NoError(t, lm.Undo())
	lm.AddBook("2", "U", "B")
	assert.ErrorIs(t, lm.Redo(), ErrNoOperationsToRedo)
	_, err := lm.GetBook("1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseReturnPolicy(t *testing.T) {
	p, err := ParseReturnPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReturnStamp, p)
	p, err = ParseReturnPolicy(" Delete ")
	require.NoError(t, err)
	assert.Equal(t, ReturnDelete, p)
	_, err = ParseReturnPolicy("archive")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}
