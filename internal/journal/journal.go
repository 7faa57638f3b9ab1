package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var keyPrefix = []byte("snap/")

var ErrNotFound = errors.New("journal entry not found")

// Journal keeps diagnostics snapshots in badger, keyed by capture time so
// iteration order is chronological.
type Journal struct {
	db         *badger.DB
	maxEntries int
	logger     *zap.Logger
}

func Open(cfg config.JournalConfig, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if cfg.InMemory || cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{logger.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{
		db:         db,
		maxEntries: cfg.MaxEntries,
		logger:     logger.With(zap.String("component", "journal")),
	}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores snapshot and drops the oldest entries beyond the configured
// maximum.
func (j *Journal) Append(snapshot domain.Snapshot) (*domain.HistoryEntry, error) {
	entry := domain.HistoryEntry{
		Id:       uuid.NewString(),
		Snapshot: snapshot,
	}
	value, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry), value)
	})
	if err != nil {
		return nil, err
	}
	if j.maxEntries > 0 {
		if err := j.trim(); err != nil {
			j.logger.Warn("journal trim failed", zap.Error(err))
		}
	}
	return &entry, nil
}

// Latest returns up to limit entries, newest first. A limit <= 0 returns all.
func (j *Journal) Latest(limit int) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true // newest first
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, keyPrefix...), 0xFF)); it.ValidForPrefix(keyPrefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				return nil
			}
			var entry domain.HistoryEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

func (j *Journal) Get(id string) (*domain.HistoryEntry, error) {
	entries, err := j.Latest(0)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Id == id {
			return &entries[i], nil
		}
	}
	return nil, ErrNotFound
}

func (j *Journal) trim() error {
	return j.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false // keys only
		it := txn.NewIterator(opts)
		defer it.Close()

		var stale [][]byte
		kept := 0
		for it.Seek(append(append([]byte{}, keyPrefix...), 0xFF)); it.ValidForPrefix(keyPrefix); it.Next() {
			if kept < j.maxEntries {
				kept++
				continue
			}
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// entryKey is prefix | big-endian unix nanos | id, so that keys sort by time
// and two snapshots taken at the same instant do not collide.
func entryKey(entry domain.HistoryEntry) []byte {
	key := make([]byte, 0, len(keyPrefix)+8+len(entry.Id))
	key = append(key, keyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(entry.Snapshot.Time.UnixNano()))
	return append(key, entry.Id...)
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
