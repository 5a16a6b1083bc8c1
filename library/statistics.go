package library

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// StatisticsService derives rental reports on demand. Results are sorted by
// value, descending; ties keep the order in which the grouping pass first
// met each name.
type StatisticsService struct {
	stores *Stores
	logger *zap.Logger
}

// NewStatisticsService reads from stores; it never mutates them.
func NewStatisticsService(stores *Stores, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{stores: stores, logger: logger.Named("statistics")}
}

// tally accumulates values per key while remembering first-seen order.
type tally struct {
	order []string
	rows  map[string]*Stat
}

func newTally() *tally { return &tally{rows: make(map[string]*Stat)} }

func (t *tally) add(key, name, detail string, v int) {
	row, ok := t.rows[key]
	if !ok {
		row = &Stat{Name: name, Detail: detail}
		t.rows[key] = row
		t.order = append(t.order, key)
	}
	row.Value += v
}

func (t *tally) sorted() []Stat {
	out := make([]Stat, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, *t.rows[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// MostRentedBooks counts rentals per book.
func (s *StatisticsService) MostRentedBooks() []Stat {
	t := newTally()
	for r := range s.stores.Rentals.All() {
		book, err := s.stores.Books.Get(r.BookID)
		if err != nil {
			s.logger.Warn("rental references missing book", zap.String("rental", r.ID), zap.Error(err))
			continue
		}
		t.add(book.ID, book.Title, book.Author, 1)
	}
	return t.sorted()
}

// MostActiveClients sums the rented days of each client's returned rentals.
func (s *StatisticsService) MostActiveClients() []Stat {
	t := newTally()
	for r := range s.stores.Rentals.All() {
		if r.Active() {
			continue
		}
		days, err := rentalDays(r)
		if err != nil {
			s.logger.Warn("unparseable rental dates", zap.String("rental", r.ID), zap.Error(err))
			continue
		}
		client, err := s.stores.Clients.Get(r.ClientID)
		if err != nil {
			s.logger.Warn("rental references missing client", zap.String("rental", r.ID), zap.Error(err))
			continue
		}
		t.add(client.ID, client.Name, "", days)
	}
	return t.sorted()
}

// MostRentedAuthors counts rentals per author of the rented book.
func (s *StatisticsService) MostRentedAuthors() []Stat {
	t := newTally()
	for r := range s.stores.Rentals.All() {
		book, err := s.stores.Books.Get(r.BookID)
		if err != nil {
			s.logger.Warn("rental references missing book", zap.String("rental", r.ID), zap.Error(err))
			continue
		}
		t.add(book.Author, book.Author, "", 1)
	}
	return t.sorted()
}

func rentalDays(r Rental) (int, error) {
	from, err := time.Parse(DateLayout, r.RentedDate)
	if err != nil {
		return 0, err
	}
	to, err := time.Parse(DateLayout, r.ReturnedDate)
	if err != nil {
		return 0, err
	}
	return int(to.Sub(from).Hours() / 24), nil
}
