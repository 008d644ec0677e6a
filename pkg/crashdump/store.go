// Package crashdump persists process crash reports to SQLite so faults
// survive the runtime that raised them.
package crashdump

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/gert-vm/gert/vm"
)

var log = commonlog.GetLogger("gert.crashdump")

// Report is one persisted crash record.
type Report struct {
	ID      int64
	PID     uint64
	Kind    string // fault kind name
	Context string // diagnostic detail from the fault
	Offset  int    // code offset at crash time
	When    time.Time
}

// Store handles SQLite storage for crash reports.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) a crash dump database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening crash dump db: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS crashes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pid INTEGER NOT NULL,
		kind TEXT NOT NULL,
		context TEXT NOT NULL,
		offset INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating crashes table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordCrash implements vm.CrashRecorder. Persistence failures are
// logged, not propagated: a broken dump store must never take down the
// scheduler.
func (s *Store) RecordCrash(p *vm.Process, c *vm.Context, f *vm.Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO crashes (pid, kind, context, offset, created_at) VALUES (?, ?, ?, ?, ?)",
		p.PID, f.Kind.String(), f.Context, c.IP(), time.Now().Unix(),
	)
	if err != nil {
		log.Errorf("recording crash of process %d: %v", p.PID, err)
	}
}

// Recent returns the latest n crash reports, newest first.
func (s *Store) Recent(n int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, pid, kind, context, offset, created_at FROM crashes ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying crashes: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		var created int64
		if err := rows.Scan(&r.ID, &r.PID, &r.Kind, &r.Context, &r.Offset, &created); err != nil {
			return nil, fmt.Errorf("scanning crash row: %w", err)
		}
		r.When = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
