package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ibus-m17n/internal/config"
	"ibus-m17n/internal/security"
)

// changeLogLimit is the number of change_log rows kept after Open.
const changeLogLimit = 1000

// ErrNotOpen is returned by operations on a Store without a database.
var ErrNotOpen = errors.New("store: not open")

// Entry is one stored setting.
type Entry struct {
	Section   string
	Key       string
	Value     string
	Revision  int64
	UpdatedAt time.Time
}

// Store is a (section, key) -> value settings store. Writes through Set and
// Unset notify subscribers synchronously; writes made by other processes
// are delivered by Sync.
type Store struct {
	db     *sql.DB
	path   string
	writer string

	mu      sync.Mutex
	subs    []func(config.Change)
	lastRev int64
}

var _ config.Store = (*Store)(nil)

// Open opens or creates the settings database at path.
func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, 5*time.Second)
}

// OpenConfig opens the database described by cfg.
func OpenConfig(cfg config.StoreConfig) (*Store, error) {
	return OpenWithTimeout(cfg.Path, time.Duration(cfg.BusyTimeoutMs)*time.Millisecond)
}

// OpenWithTimeout opens the database at path, waiting up to busy for locks
// held by other processes.
func OpenWithTimeout(path string, busy time.Duration) (*Store, error) {
	memory := path == ":memory:"
	if !memory {
		if err := security.EnsureSecureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busy.Milliseconds())
	if !memory {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if !memory {
		if err := os.Chmod(path, security.PermSecretFile); err != nil {
			db.Close()
			return nil, fmt.Errorf("set database permissions: %w", err)
		}
	}

	s := &Store{
		db:     db,
		path:   path,
		writer: fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano()),
	}
	if err := s.pruneChangeLog(); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.QueryRow("SELECT COALESCE(MAX(revision), 0) FROM change_log").Scan(&s.lastRev); err != nil {
		db.Close()
		return nil, fmt.Errorf("read revision: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the value of key in section.
func (s *Store) Get(section, key string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrNotOpen
	}
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM settings WHERE section = ? AND key = ?",
		section, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", section, key, err)
	}
	return value, true, nil
}

// Set stores value under (section, key). Writing the current value again
// is a no-op and notifies nobody.
func (s *Store) Set(section, key, value string) error {
	return s.write(config.Change{Section: section, Key: key, Value: value})
}

// Unset removes (section, key). Removing an absent key is a no-op.
func (s *Store) Unset(section, key string) error {
	return s.write(config.Change{Section: section, Key: key, Deleted: true})
}

func (s *Store) write(c config.Change) error {
	if s.db == nil {
		return ErrNotOpen
	}

	s.mu.Lock()
	changed, err := s.apply(c)
	subs := append([]func(config.Change){}, s.subs...)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if changed {
		for _, cb := range subs {
			cb(c)
		}
	}
	return nil
}

// apply writes c in one transaction. It reports false when nothing changed.
func (s *Store) apply(c config.Change) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRow(
		"SELECT value FROM settings WHERE section = ? AND key = ?",
		c.Section, c.Key,
	).Scan(&current)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read %s/%s: %w", c.Section, c.Key, err)
	}
	if (c.Deleted && !exists) || (!c.Deleted && exists && current == c.Value) {
		return false, nil
	}

	now := time.Now().UnixNano()
	var value any = c.Value
	if c.Deleted {
		value = nil
	}
	res, err := tx.Exec(`
		INSERT INTO change_log (section, key, value, deleted, writer, changed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Section, c.Key, value, c.Deleted, s.writer, now,
	)
	if err != nil {
		return false, fmt.Errorf("log change: %w", err)
	}
	rev, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("get revision: %w", err)
	}

	if c.Deleted {
		_, err = tx.Exec("DELETE FROM settings WHERE section = ? AND key = ?", c.Section, c.Key)
	} else {
		_, err = tx.Exec(`
			INSERT INTO settings (section, key, value, revision, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(section, key) DO UPDATE SET
				value = excluded.value,
				revision = excluded.revision,
				updated_at = excluded.updated_at`,
			c.Section, c.Key, c.Value, rev, now,
		)
	}
	if err != nil {
		return false, fmt.Errorf("write %s/%s: %w", c.Section, c.Key, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	if rev == s.lastRev+1 {
		s.lastRev = rev
	}
	return true, nil
}

// OnChange subscribes cb to changes. cb runs on the goroutine that made the
// change: the caller of Set/Unset, or the caller of Sync.
func (s *Store) OnChange(cb func(config.Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, cb)
}

// Sync delivers changes written by other processes since the last call and
// returns how many were delivered.
func (s *Store) Sync() (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}

	s.mu.Lock()
	rows, err := s.db.Query(`
		SELECT revision, section, key, COALESCE(value, ''), deleted, writer
		FROM change_log WHERE revision > ? ORDER BY revision`,
		s.lastRev,
	)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("read change log: %w", err)
	}

	var (
		changes []config.Change
		last    = s.lastRev
	)
	for rows.Next() {
		var (
			rev    int64
			c      config.Change
			writer string
		)
		if err := rows.Scan(&rev, &c.Section, &c.Key, &c.Value, &c.Deleted, &writer); err != nil {
			rows.Close()
			s.mu.Unlock()
			return 0, fmt.Errorf("scan change: %w", err)
		}
		last = rev
		if writer != s.writer {
			changes = append(changes, c)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("read change log: %w", err)
	}
	s.lastRev = last
	subs := append([]func(config.Change){}, s.subs...)
	s.mu.Unlock()

	for _, c := range changes {
		for _, cb := range subs {
			cb(c)
		}
	}
	return len(changes), nil
}

// Revision returns the last change_log revision this Store has seen.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRev
}

// List returns the entries of section ordered by key.
func (s *Store) List(section string) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.Query(`
		SELECT section, key, value, revision, updated_at
		FROM settings WHERE section = ? ORDER BY key`,
		section,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", section, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			updatedAt int64
		)
		if err := rows.Scan(&e.Section, &e.Key, &e.Value, &e.Revision, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.UpdatedAt = time.Unix(0, updatedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sections returns every section holding at least one entry.
func (s *Store) Sections() ([]string, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	rows, err := s.db.Query("SELECT DISTINCT section FROM settings ORDER BY section")
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []string
	for rows.Next() {
		var section string
		if err := rows.Scan(&section); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

// SchemaVersion returns the migration version of the database.
func (s *Store) SchemaVersion() (int, error) {
	if s.db == nil {
		return 0, ErrNotOpen
	}
	return schemaVersion(s.db)
}

// Verify runs the SQLite integrity check, validates the schema and checks
// that the database file is private to the user.
func (s *Store) Verify() error {
	if s.db == nil {
		return ErrNotOpen
	}
	if s.path != ":memory:" {
		if err := security.VerifyFilePermissions(s.path, security.PermSecretFile); err != nil {
			return err
		}
	}
	var result string
	if err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	if err := ValidateSchema(s.db); err != nil {
		return err
	}
	var orphans int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM settings
		WHERE revision > (SELECT COALESCE(MAX(revision), 0) FROM change_log)`,
	).Scan(&orphans)
	if err != nil {
		return fmt.Errorf("check revisions: %w", err)
	}
	if orphans > 0 {
		return fmt.Errorf("%d settings newer than the change log", orphans)
	}
	return nil
}

func (s *Store) pruneChangeLog() error {
	_, err := s.db.Exec(`
		DELETE FROM change_log
		WHERE revision <= (SELECT COALESCE(MAX(revision), 0) FROM change_log) - ?`,
		changeLogLimit,
	)
	if err != nil {
		return fmt.Errorf("prune change log: %w", err)
	}
	return nil
}
