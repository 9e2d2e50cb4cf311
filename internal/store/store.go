// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store provides the audit databases of classified BGC records
// written by bgcq and read by audit-bgcq-db.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"modernc.org/kv"

	"github.com/kortschak/bgcq/bgc"
)

// Database names and their key orderings.
const (
	InputsDB    = "inputs.db"    // GroupByInputOrderPosition
	PositionsDB = "positions.db" // ByPosition
)

// CompareFor returns the kv compare function for the named database.
func CompareFor(name string) (func(x, y []byte) int, bool) {
	switch name {
	case InputsDB:
		return GroupByInputOrderPosition, true
	case PositionsDB:
		return ByPosition, true
	default:
		return nil, false
	}
}

// GroupByInputOrderPosition is a kv compare function, ordering by input
// label, sequence name, BGC position and mining tool.
func GroupByInputOrderPosition(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}

	rx := UnmarshalRecordKey(x)
	ry := UnmarshalRecordKey(y)

	// Group records from the same input.
	switch {
	case rx.Input < ry.Input:
		return -1
	case rx.Input > ry.Input:
		return 1
	}

	return byPosition(rx, ry)
}

// ByPosition is a kv compare function, ordering by sequence name and BGC
// position, with longer BGCs first.
func ByPosition(x, y []byte) int {
	if bytes.Equal(x, y) {
		return 0
	}

	rx := UnmarshalRecordKey(x)
	ry := UnmarshalRecordKey(y)

	c := byPosition(rx, ry)
	if c != 0 {
		return c
	}

	// Ensure key uniqueness.
	switch {
	case rx.Input < ry.Input:
		return -1
	case rx.Input > ry.Input:
		return 1
	}

	panic("unreachable")
}

func byPosition(rx, ry RecordKey) int {
	switch {
	case rx.SequenceID < ry.SequenceID:
		return -1
	case rx.SequenceID > ry.SequenceID:
		return 1
	}
	switch {
	case rx.Start < ry.Start:
		return -1
	case rx.Start > ry.Start:
		return 1
	}
	switch {
	case rx.End > ry.End:
		return -1
	case rx.End < ry.End:
		return 1
	}
	switch {
	case rx.Tool < ry.Tool:
		return -1
	case rx.Tool > ry.Tool:
		return 1
	}
	switch {
	case rx.ID < ry.ID:
		return -1
	case rx.ID > ry.ID:
		return 1
	}
	return 0
}

// RecordKey is the key of a BGC record in an audit database.
type RecordKey struct {
	Input      string
	SequenceID string
	Start      int64
	End        int64
	Tool       bgc.Tool
	ID         string
}

var order = binary.BigEndian

// MarshalRecordKey returns the key for the record r from the labelled
// input.
func MarshalRecordKey(input string, r bgc.Record) []byte {
	var (
		buf bytes.Buffer
		b   [8]byte
	)
	order.PutUint64(b[:], uint64(len(input)))
	buf.Write(b[:])
	buf.WriteString(input)
	order.PutUint64(b[:], uint64(len(r.SequenceID)))
	buf.Write(b[:])
	buf.WriteString(r.SequenceID)
	order.PutUint64(b[:], uint64(r.Start))
	buf.Write(b[:])
	order.PutUint64(b[:], uint64(r.End))
	buf.Write(b[:])
	buf.WriteByte(byte(r.Tool))
	order.PutUint64(b[:], uint64(len(r.ID)))
	buf.Write(b[:])
	buf.WriteString(r.ID)
	return buf.Bytes()
}

func UnmarshalRecordKey(data []byte) RecordKey {
	var k RecordKey
	n64 := binary.Size(uint64(0))
	n := order.Uint64(data[:n64])
	data = data[n64:]
	k.Input = string(data[:n])
	data = data[n:]
	n = order.Uint64(data[:n64])
	data = data[n64:]
	k.SequenceID = string(data[:n])
	data = data[n:]
	k.Start = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	k.End = int64(order.Uint64(data[:n64]))
	data = data[n64:]
	k.Tool = bgc.Tool(data[0])
	data = data[1:]
	n = order.Uint64(data[:n64])
	data = data[n64:]
	k.ID = string(data[:n])
	return k
}

// Entry is an audit database value.
type Entry struct {
	Run   uuid.UUID
	Input string
	bgc.Record

	// Class is the classification of the
	// record in the run, if any.
	Class string `json:",omitempty"`
}

// Write writes the entries to the named databases in dir, creating dir
// if necessary. Existing databases are replaced.
func Write(dir string, entries []Entry, names ...string) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}
	for _, name := range names {
		err = write(filepath.Join(dir, name), entries)
		if err != nil {
			return err
		}
	}
	return nil
}

func write(path string, entries []Entry) (err error) {
	cmp, ok := CompareFor(filepath.Base(path))
	if !ok {
		return fmt.Errorf("store: unknown database: %s", path)
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := kv.Create(path, &kv.Options{Compare: cmp})
	if err != nil {
		return err
	}
	defer func() {
		cerr := db.Close()
		if err == nil {
			err = cerr
		}
	}()
	err = db.BeginTransaction()
	if err != nil {
		return err
	}
	for _, e := range entries {
		v, err := json.Marshal(e)
		if err != nil {
			db.Rollback()
			return err
		}
		err = db.Set(MarshalRecordKey(e.Input, e.Record), v)
		if err != nil {
			db.Rollback()
			return err
		}
	}
	return db.Commit()
}

// Dump writes the values of the named database at path to w in key order
// as a JSON stream.
func Dump(w io.Writer, path string) error {
	return Walk(path, func(_, v []byte) error {
		_, err := fmt.Fprintf(w, "%s\n", v)
		return err
	})
}

// Walk calls fn on each key and value of the named database at path in
// key order. Walk stops at the first error returned by fn.
func Walk(path string, fn func(k, v []byte) error) error {
	cmp, ok := CompareFor(filepath.Base(path))
	if !ok {
		return fmt.Errorf("store: unknown database: %s", path)
	}
	db, err := kv.Open(path, &kv.Options{Compare: cmp})
	if err != nil {
		return err
	}
	defer db.Close()

	it, err := db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		err = fn(k, v)
		if err != nil {
			return err
		}
	}
}
