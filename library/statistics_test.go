package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedStatistics(t *testing.T) *StatisticsService {
	t.Helper()
	stores := NewMemoryStores(zap.NewNop(), nil)
	books := []Book{
		{ID: "B1", Title: "Popular Book", Author: "Famous Author", Available: true},
		{ID: "B2", Title: "Unpopular Book", Author: "Unknown Author", Available: true},
		{ID: "B3", Title: "Another Book", Author: "Famous Author", Available: true},
		{ID: "B4", Title: "Extra Book 1", Author: "Famous Author", Available: true},
		{ID: "B5", Title: "Extra Book 2", Author: "Unknown Author", Available: true},
		{ID: "B6", Title: "Time Waster", Author: "Another Author", Available: true},
		{ID: "B7", Title: "Top Rented Book", Author: "Famous Author", Available: true},
		{ID: "B8", Title: "Another Time Waster", Author: "Another Author", Available: true},
	}
	for _, b := range books {
		require.NoError(t, stores.Books.Add(b))
	}
	require.NoError(t, stores.Clients.Add(Client{ID: "C1", Name: "Active Client"}))
	require.NoError(t, stores.Clients.Add(Client{ID: "C2", Name: "Lazy Client"}))

	rentals := []Rental{
		{ID: "R1", BookID: "B1", ClientID: "C1", RentedDate: "2023-01-01", ReturnedDate: "2023-01-02"},
		{ID: "R2", BookID: "B2", ClientID: "C2", RentedDate: "2023-01-01", ReturnedDate: "2023-01-02"},
		{ID: "R3", BookID: "B3", ClientID: "C1", RentedDate: "2023-02-01", ReturnedDate: "2023-02-02"},
		{ID: "R4", BookID: "B4", ClientID: "C1", RentedDate: "2023-03-01", ReturnedDate: "2023-03-02"},
		{ID: "R5", BookID: "B7", ClientID: "C1", RentedDate: "2023-03-05", ReturnedDate: "2023-03-06"},
		{ID: "R6", BookID: "B5", ClientID: "C2", RentedDate: "2023-04-01", ReturnedDate: "2023-04-02"},
		{ID: "R10", BookID: "B6", ClientID: "C1", RentedDate: "2023-05-01", ReturnedDate: "2023-05-11"},
		{ID: "R11", BookID: "B8", ClientID: "C2", RentedDate: "2023-06-01", ReturnedDate: "2023-06-02"},
	}
	for _, r := range rentals {
		require.NoError(t, stores.Rentals.Add(r))
	}
	return NewStatisticsService(stores, zap.NewNop())
}

func TestMostRentedBooks(t *testing.T) {
	got := seedStatistics(t).MostRentedBooks()
	require.Len(t, got, 8)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, "Popular Book", got[0].Name)
	assert.Equal(t, "Famous Author", got[0].Detail)
}

func TestMostActiveClients(t *testing.T) {
	got := seedStatistics(t).MostActiveClients()
	require.Len(t, got, 2)
	assert.Equal(t, Stat{Name: "Active Client", Value: 14}, got[0])
	assert.Equal(t, Stat{Name: "Lazy Client", Value: 3}, got[1])
}

func TestMostRentedAuthorsKeepsFirstSeenOrderOnTies(t *testing.T) {
	got := seedStatistics(t).MostRentedAuthors()
	require.Len(t, got, 3)
	assert.Equal(t, Stat{Name: "Famous Author", Value: 4}, got[0])
	assert.Equal(t, Stat{Name: "Unknown Author", Value: 2}, got[1])
	assert.Equal(t, Stat{Name: "Another Author", Value: 2}, got[2])
}

func TestStatisticsThroughRentals(t *testing.T) {
	lm := NewMemoryManager(zap.NewNop())
	lm.AddClient("C1", "Ana")
	for _, b := range [][3]string{
		{"B1", "One", "Famous Author"},
		{"B2", "Two", "Famous Author"},
		{"B3", "Three", "Famous Author"},
		{"B4", "Four", "Other Author"},
	} {
		_, err := lm.AddBook(b[0], b[1], b[2])
		require.NoError(t, err)
	}
	_, err := lm.RentBook("R1", "C1", "One", "2023-01-01")
	require.NoError(t, err)
	_, err = lm.ReturnBookOn("One", "2023-01-02")
	require.NoError(t, err)
	_, err = lm.RentBook("R2", "C1", "Two", "2023-02-01")
	require.NoError(t, err)
	_, err = lm.ReturnBookOn("Two", "2023-02-11")
	require.NoError(t, err)
	lm.RentBook("R3", "C1", "Three", "2023-03-01")
	lm.RentBook("R4", "C1", "Four", "2023-03-01")

	authors := lm.MostRentedAuthors()
	require.NotEmpty(t, authors)
	assert.Equal(t, Stat{Name: "Famous Author", Value: 3}, authors[0])

	clients := lm.MostActiveClients()
	require.Len(t, clients, 1)
	assert.Equal(t, 11, clients[0].Value, "active rentals do not count")
}

func TestStatisticsSkipDanglingReferences(t *testing.T) {
	stores := NewMemoryStores(zap.NewNop(), nil)
	require.NoError(t, stores.Rentals.Add(Rental{ID: "R1", BookID: "gone", ClientID: "gone", RentedDate: "2023-01-01", ReturnedDate: "2023-01-02"}))
	stats := NewStatisticsService(stores, nil)
	assert.Empty(t, stats.MostRentedBooks())
	assert.Empty(t, stats.MostActiveClients())
	assert.Empty(t, stats.MostRentedAuthors())
}
