// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package eventlog is the durable, append-only event stream (spec.md §4.2,
// "C2"). It is backed by go.etcd.io/bbolt, whose single-writer,
// page-level-ACID transactions are exactly the "single-writer transactional
// table" external interface spec.md §6 describes: writes inside one
// bolt.Update are atomic (no partial append survives a crash), and bolt's
// own file lock serializes concurrent writers without any extra locking in
// this package.
package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/antgroup/zeta-branchless/modules/zetabl/event"
)

var (
	eventsBucket = []byte("events")
	txBucket     = []byte("transactions")
)

// ErrLogCorruption names the LogCorruption condition (spec.md §7): the
// log's tail contains a record that does not decode. The readers in this
// package do not return it; they truncate at that record, log a warning,
// and return the consistent prefix with a nil error.
var ErrLogCorruption = errors.New("eventlog: corrupt trailing record, truncated")

// Log is the durable, append-only event sequence table.
type Log struct {
	db *bolt.DB
}

// Open opens (creating if absent) the event log at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(eventsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(txBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("eventlog: init buckets: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error { return l.db.Close() }

type txRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// MakeTransactionID allocates a fresh transaction id and persists the
// (timestamp, message) association backing it (spec.md §4.2).
func (l *Log) MakeTransactionID(now time.Time, message string) (event.TxID, error) {
	var id event.TxID
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(txBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = event.TxID(seq)
		rec := txRecord{Timestamp: now, Message: message}
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("eventlog: make transaction id: %w", err)
	}
	return id, nil
}

// AddEvents appends events atomically, in one transaction, all bearing
// txID. A write failure aborts the whole append — there is no partial
// result (spec.md §4.2's failure semantics).
func (l *Log) AddEvents(txID event.TxID, now time.Time, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		for i := range events {
			events[i].TxID = txID
			if events[i].Timestamp.IsZero() {
				events[i].Timestamp = now
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			events[i].ID = int64(seq)
			buf, err := json.Marshal(events[i])
			if err != nil {
				return err
			}
			if err := b.Put(itob(seq), buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("tx_id", txID).Error("eventlog: append failed")
		return fmt.Errorf("eventlog: add events: %w", err)
	}
	logrus.WithField("tx_id", txID).WithField("count", len(events)).Debug("eventlog: appended events")
	return nil
}

// GetEvents returns the full ordered log, tolerating a corrupt trailing
// record by truncating to the last consistent prefix (spec.md §4.2).
func (l *Log) GetEvents() ([]event.Event, error) {
	return l.GetEventsBeforeCursor(-1)
}

// GetEventsBeforeCursor returns events with id <= cursor (cursor counts
// events seen so far: 0 = before the first event). A negative cursor means
// "no limit" (the full log).
func (l *Log) GetEventsBeforeCursor(cursor int64) ([]event.Event, error) {
	var out []event.Event
	var corrupt bool
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			id := int64(btoi(k))
			if cursor >= 0 && id > cursor {
				break
			}
			var ev event.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				// Forward/backward-compat readers tolerate a corrupt or
				// unknown-shaped trailing record by stopping here rather
				// than failing the whole read.
				corrupt = true
				break
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("eventlog: read events: %w", err)
	}
	if corrupt {
		logrus.Warn("eventlog: truncated log at first undecodable record")
	}
	return out, nil
}

// Count returns the number of events currently in the log; it is the
// position of the default ("end of log") cursor.
func (l *Log) Count() (int64, error) {
	var n int64
	err := l.db.View(func(tx *bolt.Tx) error {
		n = int64(tx.Bucket(eventsBucket).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
