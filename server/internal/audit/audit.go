// audit.go - bbolt backed command audit trail.
// Copyright (C) 2025  The triplex Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package audit records every executed request into a bbolt database.  A
// dedicated worker goroutine owns the database handle; connection workers
// hand records off through a channel and never block on disk I/O.
package audit

import (
	"encoding/binary"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/op/go-logging.v1"

	"github.com/triplex-sh/triplex/core/worker"
)

var recordsBucket = []byte("records")

// Record is one executed request.
type Record struct {
	Session   uint64
	Peer      string
	Verb      string
	Params    []string
	Code      int32
	Timestamp time.Time
}

// Log is the audit trail.
type Log struct {
	worker.Worker

	log *logging.Logger
	db  *bolt.DB

	recordCh chan *Record
}

// New opens (creating if necessary) the audit database at path and starts
// the writer worker.
func New(path string, log *logging.Logger) (*Log, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	l := &Log{
		log:      log,
		db:       db,
		recordCh: make(chan *Record, 64),
	}
	l.Go(l.writer)
	return l, nil
}

// Submit queues a record for persistence.  Records offered during
// shutdown are dropped.
func (l *Log) Submit(r *Record) {
	select {
	case l.recordCh <- r:
	case <-l.HaltCh():
	}
}

// Shutdown stops the writer, draining queued records, and closes the
// database.
func (l *Log) Shutdown() {
	l.Halt()
	if err := l.db.Close(); err != nil {
		l.log.Errorf("Failed to close audit database: %v", err)
	}
}

func (l *Log) writer() {
	for {
		select {
		case <-l.HaltCh():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case r := <-l.recordCh:
					l.persist(r)
				default:
					return
				}
			}
		case r := <-l.recordCh:
			l.persist(r)
		}
	}
}

func (l *Log) persist(r *Record) {
	blob, err := cbor.Marshal(r)
	if err != nil {
		l.log.Errorf("Failed to encode audit record: %v", err)
		return
	}
	err = l.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(recordsBucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return bkt.Put(key[:], blob)
	})
	if err != nil {
		l.log.Errorf("Failed to persist audit record: %v", err)
	}
}

// Count returns the number of persisted records.
func (l *Log) Count() (int, error) {
	n := 0
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Records returns all persisted records in insertion order.
func (l *Log) Records() ([]*Record, error) {
	var out []*Record
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, v []byte) error {
			r := new(Record)
			if err := cbor.Unmarshal(v, r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}
