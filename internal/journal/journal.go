// Package journal records every editing operation in an append-only DuckDB
// table so sessions can be audited and replayed.
package journal

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
)

// Kinds of journal entries.
const (
	KindOpen     = "open"
	KindDispatch = "dispatch"
	KindUndo     = "undo"
	KindRedo     = "redo"
	KindClose    = "close"
)

// DefaultBatchSize is the number of entries buffered before an Appender flush.
const DefaultBatchSize = 256

// Entry is one journaled operation.
type Entry struct {
	Seq        int64     `json:"seq"`
	SessionID  string    `json:"sessionId"`
	Revision   int       `json:"revision"`
	Kind       string    `json:"kind"`
	ActionType string    `json:"actionType,omitempty"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason,omitempty"`  // Rejection reason
	Payload    string    `json:"payload,omitempty"` // JSON action envelope
	Rungs      int       `json:"rungs"`
	Components int       `json:"components"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats summarizes the journal of one session.
type Stats struct {
	Total    int            `json:"total"`
	Accepted int            `json:"accepted"`
	Rejected int            `json:"rejected"`
	ByType   map[string]int `json:"byType"`
}

// Store is a DuckDB-backed journal. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	dbPath    string
	mu        sync.Mutex
	seq       int64
	batchSize int
	batch     []Entry
	lastError error
}

// Open creates or reopens the journal database in dir.
func Open(dir string) (*Store, error) {
	return OpenAtPath(filepath.Join(dir, "journal.duckdb"))
}

// OpenAtPath creates or reopens the journal database at dbPath.
func OpenAtPath(dbPath string) (*Store, error) {
	fmt.Printf("[Journal] Opening database at: %s\n", dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[Journal] Pragma warning: %v\n", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			seq         BIGINT NOT NULL,
			session_id  VARCHAR NOT NULL,
			revision    INTEGER NOT NULL,
			kind        VARCHAR NOT NULL,
			action_type VARCHAR,
			accepted    BOOLEAN NOT NULL,
			reason      VARCHAR,
			payload     VARCHAR,
			rungs       INTEGER,
			components  INTEGER,
			ts          BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM actions").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	}

	return &Store{
		db:        db,
		dbPath:    dbPath,
		seq:       maxSeq.Int64,
		batchSize: DefaultBatchSize,
		batch:     make([]Entry, 0, DefaultBatchSize),
	}, nil
}

// SetBatchSize changes how many entries are buffered before flushing.
func (s *Store) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	s.batchSize = n
	s.mu.Unlock()
}

// Record buffers an entry, assigning its sequence number. Entries are written
// in batches; queries flush first, so buffered entries are always visible.
func (s *Store) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e.Seq = s.seq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.batch = append(s.batch, e)

	if len(s.batch) >= s.batchSize {
		if err := s.flushLocked(); err != nil {
			s.lastError = err
			fmt.Printf("[Journal] flush error: %v\n", err)
		}
	}
}

// LastError returns the last error that occurred during a background flush.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Flush writes buffered entries.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the batch using the native Appender API.
func (s *Store) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "actions")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, e := range s.batch {
			err := appender.AppendRow(
				e.Seq,
				e.SessionID,
				int32(e.Revision),
				e.Kind,
				e.ActionType,
				e.Accepted,
				e.Reason,
				e.Payload,
				int32(e.Rungs),
				int32(e.Components),
				e.Timestamp.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	s.batch = s.batch[:0]
	return nil
}

// Entries returns the most recent entries of a session in sequence order.
// A limit of zero or less returns all entries.
func (s *Store) Entries(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}

	query := `
		SELECT seq, session_id, revision, kind, action_type, accepted, reason, payload, rungs, components, ts
		FROM (
			SELECT * FROM actions WHERE session_id = ? ORDER BY seq DESC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += ") ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                               Entry
			actionType, reason, payload     sql.NullString
			revision, rungs, components, ts int64
		)
		if err := rows.Scan(&e.Seq, &e.SessionID, &revision, &e.Kind, &actionType, &e.Accepted, &reason, &payload, &rungs, &components, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Revision = int(revision)
		e.ActionType = actionType.String
		e.Reason = reason.String
		e.Payload = payload.String
		e.Rungs = int(rungs)
		e.Components = int(components)
		e.Timestamp = time.UnixMilli(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates a session's dispatch entries by action type.
func (s *Store) Stats(ctx context.Context, sessionID string) (Stats, error) {
	stats := Stats{ByType: make(map[string]int)}
	if err := s.Flush(); err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT action_type, accepted, COUNT(*)
		FROM actions
		WHERE session_id = ? AND kind = ?
		GROUP BY action_type, accepted
	`, sessionID, KindDispatch)
	if err != nil {
		return stats, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			actionType sql.NullString
			accepted   bool
			count      int64
		)
		if err := rows.Scan(&actionType, &accepted, &count); err != nil {
			return stats, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total += int(count)
		if accepted {
			stats.Accepted += int(count)
		} else {
			stats.Rejected += int(count)
		}
		stats.ByType[actionType.String] += int(count)
	}
	return stats, rows.Err()
}

// Purge deletes all entries of a session.
func (s *Store) Purge(ctx context.Context, sessionID string) error {
	if err := s.Flush(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM actions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to purge session %s: %w", sessionID, err)
	}
	return nil
}

// Close flushes pending entries and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.flushLocked()
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.db = nil
	}
	return err
}
