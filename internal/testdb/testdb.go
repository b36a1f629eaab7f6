// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package testdb is a minimal in-memory implementation of
// github.com/luxfi/database.Database used only by this module's own tests,
// standing in for a real pebble/leveldb-backed instance.
package testdb

import (
	"bytes"
	"sort"

	"github.com/luxfi/database"
)

// DB is an in-memory database.Database.
type DB struct {
	data map[string][]byte
}

// New returns an empty DB.
func New() *DB {
	return &DB{data: make(map[string][]byte)}
}

func (m *DB) Has(key []byte) (bool, error) {
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *DB) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return v, nil
}

func (m *DB) Put(key, value []byte) error {
	m.data[string(key)] = value
	return nil
}

func (m *DB) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *DB) NewBatch() database.Batch {
	return &batch{db: m}
}

func (m *DB) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &iterator{db: m, keys: keys, pos: -1}
}

func (m *DB) Close() error { return nil }

type batch struct {
	db  *DB
	ops []func()
}

func (b *batch) Put(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	b.ops = append(b.ops, func() { b.db.data[string(k)] = v })
	return nil
}

func (b *batch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func() { delete(b.db.data, string(k)) })
	return nil
}

func (b *batch) Size() int { return len(b.ops) }

func (b *batch) Write() error {
	for _, op := range b.ops {
		op()
	}
	return nil
}

func (b *batch) Reset() { b.ops = nil }

func (b *batch) Replay(w database.Writer) error {
	for _, op := range b.ops {
		op()
	}
	return nil
}

type iterator struct {
	db   *DB
	keys []string
	pos  int
}

func (it *iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *iterator) Value() []byte { return it.db.data[it.keys[it.pos]] }
func (it *iterator) Error() error  { return nil }
func (it *iterator) Release()      {}
