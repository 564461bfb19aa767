// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

// Row is one decoded table row, holding one Value per definition field, in
// definition order.
type Row []Value

// RowStore materializes decoded rows. Backends differ only in where rows
// live; field decoding and encoding never depend on the choice.
//
// Scan visits rows in insertion order, which is also wire order. That order
// is what makes encode-after-decode byte-stable, so implementations must
// preserve it.
type RowStore interface {
	// Insert appends rows to the store.
	Insert(rows ...Row) error

	// Count returns the number of stored rows.
	Count() (int, error)

	// Scan calls fn for every row in insertion order, stopping at the first
	// error.
	Scan(fn func(Row) error) error
}

// memoryStore keeps rows in a slice. It is the default backend.
type memoryStore struct {
	rows []Row
}

func (s *memoryStore) Insert(rows ...Row) error {
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *memoryStore) Count() (int, error) {
	return len(s.rows), nil
}

func (s *memoryStore) Scan(fn func(Row) error) error {
	for _, row := range s.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
