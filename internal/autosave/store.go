// Package autosave keeps the latest snapshot of every editing session in an
// embedded BadgerDB so unsaved work survives a restart.
package autosave

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrSnapshotNotFound is returned when a session has no snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const keyPrefix = "snapshot/"

// Snapshot is the saved state of one session.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	Revision  int             `json:"revision"`
	SavedAt   time.Time       `json:"savedAt"`
	Project   *models.Project `json:"project"`
}

// Config holds configuration for the snapshot store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Verbose forwards BadgerDB info and debug logs.
	Verbose bool

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns the production configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger prints BadgerDB logs in the server's prefixed style.
type badgerLogger struct {
	verbose bool
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	fmt.Printf("[Autosave] ERROR: "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	fmt.Printf("[Autosave] WARN: "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	if l.verbose {
		fmt.Printf("[Autosave] "+format, args...)
	}
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	if l.verbose {
		fmt.Printf("[Autosave] DEBUG: "+format, args...)
	}
}

// Store persists snapshots keyed by session id.
type Store struct {
	db     *badger.DB
	ratio  float64
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// Open opens the store and starts value log GC when configured.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent snapshot store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{verbose: cfg.Verbose})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{
		db:     db,
		ratio:  cfg.GCDiscardRatio,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.runGC(cfg.GCInterval)
	} else {
		close(s.doneCh)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(s.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				fmt.Printf("[Autosave] value log GC error: %v\n", err)
			}
		}
	}
}

func snapshotKey(sessionID string) []byte {
	return []byte(keyPrefix + sessionID)
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(&snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save replaces the snapshot of snap.SessionID. SavedAt is set when zero.
func (s *Store) Save(snap Snapshot) error {
	if snap.SessionID == "" {
		return errors.New("snapshot without session id")
	}
	if snap.Project == nil {
		return errors.New("snapshot without project")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snap.SessionID), data)
	})
}

// Load returns the snapshot of a session.
func (s *Store) Load(sessionID string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			snap, err = decodeSnapshot(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the snapshot of a session. Missing snapshots are ignored.
func (s *Store) Delete(sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey(sessionID))
	})
}

// List returns all snapshots ordered by session id.
func (s *Store) List() ([]Snapshot, error) {
	var out []Snapshot
	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				snap, err := decodeSnapshot(val)
				if err != nil {
					return err
				}
				out = append(out, *snap)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	<-s.doneCh
	return s.db.Close()
}
