package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/ruteri/credential-registry/interfaces"
)

var orphanPrefix = []byte("orphan/")

// BadgerJournal persists orphan records in badger. With an empty directory the
// journal is in-memory and lost on restart.
type BadgerJournal struct {
	db  *badger.DB
	log *slog.Logger
	seq atomic.Uint64
}

// OpenBadgerJournal opens (or creates) the journal under dir.
func OpenBadgerJournal(dir string, log *slog.Logger) (*BadgerJournal, error) {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if _, err := os.Stat(dir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read journal dir: %w", err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create journal dir: %w", err)
			}
		}
		opts = badger.DefaultOptions(dir)
	}

	db, err := badger.Open(opts.
		WithLogger(&badgerLogger{log: log}).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	return &BadgerJournal{db: db, log: log}, nil
}

// Close flushes and closes the underlying database.
func (j *BadgerJournal) Close() error {
	return j.db.Close()
}

// orphanKey orders records by time; the sequence breaks ties within one nanosecond.
func (j *BadgerJournal) orphanKey(rec interfaces.OrphanRecord) []byte {
	return fmt.Appendf(append([]byte(nil), orphanPrefix...), "%020d/%08d/%s",
		rec.RecordedAt.UnixNano(), j.seq.Add(1), rec.ContentAddress)
}

// Record appends an orphan entry.
func (j *BadgerJournal) Record(ctx context.Context, rec interfaces.OrphanRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode orphan record: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(j.orphanKey(rec), val)
	})
	if err != nil {
		return fmt.Errorf("failed to write orphan record: %w", err)
	}

	j.log.Debug("Recorded orphaned content",
		slog.String("contentAddress", rec.ContentAddress.String()),
		slog.String("student", rec.Student.Hex()))
	return nil
}

// List returns all orphan records in recording order.
func (j *BadgerJournal) List(ctx context.Context) ([]interfaces.OrphanRecord, error) {
	records := []interfaces.OrphanRecord{}

	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(orphanPrefix); it.ValidForPrefix(orphanPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var rec interfaces.OrphanRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan records: %w", err)
	}
	return records, nil
}

// badgerLogger routes badger's internal logging to slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}
