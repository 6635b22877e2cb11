package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"

	// Postgres driver, registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyFinalized is returned when finalizing a completed session.
	ErrAlreadyFinalized = errors.New("session already finalized")
)

// Config selects the database.
type Config struct {
	Driver string // sqlite or postgres
	DSN    string
}

// DefaultConfig uses SQLite at the default data path.
func DefaultConfig() (Config, error) {
	p, err := DefaultDBPath()
	if err != nil {
		return Config{}, err
	}
	return Config{Driver: DriverSQLite, DSN: p}, nil
}

// ConfigFromEnv reads MISSIONKIT_DB_DRIVER and MISSIONKIT_DB, falling back
// to DefaultConfig.
func ConfigFromEnv() (Config, error) {
	driver := strings.ToLower(os.Getenv("MISSIONKIT_DB_DRIVER"))
	if driver == DriverPostgres {
		dsn := os.Getenv("MISSIONKIT_DB")
		if dsn == "" {
			return Config{}, fmt.Errorf("MISSIONKIT_DB is required for the postgres driver")
		}
		return Config{Driver: DriverPostgres, DSN: dsn}, nil
	}
	return DefaultConfig()
}

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
	now     func() time.Time
}

// Open connects to the SQLite database at dsn. It applies recommended
// pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	return OpenConfig(context.Background(), Config{Driver: DriverSQLite, DSN: dsn})
}

// OpenConfig connects using cfg and migrates the schema.
func OpenConfig(ctx context.Context, cfg Config) (*Store, error) {
	var (
		driverName string
		dia        string
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		driverName, dia = "sqlite", dialect.SQLite
	case DriverPostgres:
		driverName, dia = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dia == dialect.SQLite {
		// One connection keeps in-memory databases shared and writes serialized.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	} else if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: dia, seq: seq, now: time.Now}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionRepo returns the game session repository.
func (s *Store) SessionRepo() SessionRepo {
	return &sessionRepo{s: s}
}

// ContentRepo returns the content bank repository.
func (s *Store) ContentRepo() ContentRepo {
	return &contentRepo{s: s}
}

// EventRepo returns the event repository.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{s: s}
}

// applyPragmas configures SQLite for a small single-process service.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MISSIONKIT_DB environment variable
// 2. $XDG_DATA_HOME/missionkit/missionkit.db
// 3. ~/.local/share/missionkit/missionkit.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MISSIONKIT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "missionkit", "missionkit.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
