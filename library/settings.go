package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Backend kinds accepted in settings.
const (
	BackendMemory = "memory"
	BackendText   = "text"
	BackendBinary = "binary"
	BackendSQLite = "sqlite"
)

// Settings selects the persistence backend of each store and a few runtime
// knobs. Per-store keys override Repository.
type Settings struct {
	Repository   string `yaml:"repository"`
	Books        string `yaml:"books"`
	Clients      string `yaml:"clients"`
	Rentals      string `yaml:"rentals"`
	DataDir      string `yaml:"data_dir"`
	Database     string `yaml:"database"`
	ReturnPolicy string `yaml:"return_policy"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// DefaultSettings keeps everything in memory.
func DefaultSettings() Settings {
	return Settings{
		Repository:   BackendMemory,
		DataDir:      ".",
		Database:     "library.db",
		ReturnPolicy: string(ReturnStamp),
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// LoadSettings reads a YAML settings file. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// BackendFor returns the backend kind configured for store ("books",
// "clients" or "rentals").
func (s Settings) BackendFor(store string) string {
	var kind string
	switch store {
	case "books":
		kind = s.Books
	case "clients":
		kind = s.Clients
	case "rentals":
		kind = s.Rentals
	}
	if strings.TrimSpace(kind) == "" {
		kind = s.Repository
	}
	if strings.TrimSpace(kind) == "" {
		kind = BackendMemory
	}
	return strings.ToLower(strings.TrimSpace(kind))
}

// NewLogger builds the zap logger described by the settings.
func (s Settings) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", s.LogLevel, ErrInvalidOperation)
	}
	cfg := zap.NewProductionConfig()
	if s.LogFormat == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// OpenStores constructs the three stores with the configured backends. The
// returned closer releases the SQLite database when one was opened.
func OpenStores(s Settings, logger *zap.Logger, metrics *Metrics) (*Stores, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := s.DataDir
	if dir == "" {
		dir = "."
	}

	var db *Database
	openDB := func() (*Database, error) {
		if db != nil {
			return db, nil
		}
		name := s.Database
		if name == "" {
			name = "library.db"
		}
		var err error
		db, err = NewDatabase(filepath.Join(dir, name))
		return db, err
	}
	fail := func(err error) (*Stores, io.Closer, error) {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}

	books, err := openBackend(s.BackendFor("books"), filepath.Join(dir, "books"), BookTextCodec, openDB, (*Database).Books)
	if err != nil {
		return fail(err)
	}
	clients, err := openBackend(s.BackendFor("clients"), filepath.Join(dir, "clients"), ClientTextCodec, openDB, (*Database).Clients)
	if err != nil {
		return fail(err)
	}
	rentals, err := openBackend(s.BackendFor("rentals"), filepath.Join(dir, "rentals"), RentalTextCodec, openDB, (*Database).Rentals)
	if err != nil {
		return fail(err)
	}

	st := &Stores{}
	if st.Books, err = NewStore[Book]("books", books, logger, metrics); err != nil {
		return fail(err)
	}
	if st.Clients, err = NewStore[Client]("clients", clients, logger, metrics); err != nil {
		return fail(err)
	}
	if st.Rentals, err = NewRentalStore(rentals, logger, metrics); err != nil {
		return fail(err)
	}

	var closer io.Closer = nopCloser{}
	if db != nil {
		closer = db
	}
	return st, closer, nil
}

func openBackend[T Entity](kind, base string, codec TextCodec[T], openDB func() (*Database, error), table func(*Database) Backend[T]) (Backend[T], error) {
	switch kind {
	case BackendMemory:
		return MemoryBackend[T]{}, nil
	case BackendText:
		return NewTextFile(base+".txt", codec), nil
	case BackendBinary:
		return NewBinaryFile[T](base + ".bin"), nil
	case BackendSQLite:
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		return table(db), nil
	default:
		return nil, fmt.Errorf("repository %q not supported: %w", kind, ErrInvalidOperation)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
