// Package imagestore keeps named machine images in a SQLite database.
package imagestore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/icint/vm"
)

var log = commonlog.GetLogger("icint.imagestore")

// ErrImageNotFound indicates the requested image doesn't exist
var ErrImageNotFound = errors.New("image not found")

// Entry describes a stored image without its contents.
type Entry struct {
	Name    string
	ID      string
	Words   int
	Code    int // words of code above the origin
	SavedAt time.Time
}

// Store handles SQLite storage for images
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens or creates the image database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		words INTEGER NOT NULL,
		code INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores img under name, replacing any image of the same name.
func (s *Store) Save(name string, img *vm.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := vm.MarshalImage(img)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (name, id, words, code, saved_at, data) VALUES (?, ?, ?, ?, ?, ?)",
		name, img.ID, img.WordCount, img.LoMem-img.Origin, time.Now().Unix(), data,
	)
	if err != nil {
		return fmt.Errorf("saving image: %w", err)
	}
	log.Infof("saved image %s as %q in %s", img.ID, name, s.dbPath)
	return nil
}

// Load retrieves the image stored under name.
func (s *Store) Load(name string) (*vm.Image, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	img, err := vm.UnmarshalImage(data)
	if err != nil {
		return nil, fmt.Errorf("image %q: %w", name, err)
	}
	log.Debugf("loaded image %q (%s)", name, img.ID)
	return img, nil
}

// Delete removes the image stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM images WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrImageNotFound
	}
	return nil
}

// List returns every stored image, ordered by name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT name, id, words, code, saved_at FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var saved int64
		if err := rows.Scan(&e.Name, &e.ID, &e.Words, &e.Code, &saved); err != nil {
			return nil, fmt.Errorf("scanning image row: %w", err)
		}
		e.SavedAt = time.Unix(saved, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
