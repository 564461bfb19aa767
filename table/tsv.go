// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package table

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/suprsokr/go-pack/schema"
)

// tsvMetadataPrefix starts the second line of an exported table, carrying
// the table name, definition version, and container path of the source.
const tsvMetadataPrefix = "#"

// ExportTSV writes the table as tab-separated values: one line of column
// names, one #-prefixed metadata line, then the rows in display form.
//
// Sequence cells have no text form and make the export fail.
func (t *Table) ExportTSV(w io.Writer, filePath string) error {
	for _, field := range t.def.Fields {
		if field.Type.IsSequence() {
			return errors.Newf("table: sequence field %s cannot be exported as TSV", field.Name)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	cw.UseCRLF = false

	names := make([]string, len(t.def.Fields))
	for i, field := range t.def.Fields {
		names[i] = field.Name
	}
	if err := cw.Write(names); err != nil {
		return errors.Wrap(err, "table: write tsv header")
	}

	metadata := []string{
		tsvMetadataPrefix + t.name,
		strconv.FormatInt(int64(t.def.Version), 10),
		filePath,
	}
	if err := cw.Write(metadata); err != nil {
		return errors.Wrap(err, "table: write tsv metadata")
	}

	err := t.Scan(func(row Row) error {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = v.Display()
		}
		return cw.Write(record)
	})
	if err != nil {
		return errors.Wrap(err, "table: write tsv rows")
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "table: flush tsv")
}

// ImportTSV reads a table exported by ExportTSV. The definition is resolved
// from the metadata line against the supplied schema, and every value is
// parsed back from its display form.
//
// It returns the table and the container path recorded in the metadata.
func ImportTSV(r io.Reader, s *schema.Schema) (*Table, string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	names, err := cr.Read()
	if err != nil {
		return nil, "", errors.Wrap(err, "table: read tsv header")
	}

	metadata, err := cr.Read()
	if err != nil {
		return nil, "", errors.Wrap(err, "table: read tsv metadata")
	}
	if len(metadata) < 2 || !strings.HasPrefix(metadata[0], tsvMetadataPrefix) {
		return nil, "", errors.New("table: tsv metadata line missing")
	}

	name := strings.TrimPrefix(metadata[0], tsvMetadataPrefix)
	version, err := strconv.ParseInt(metadata[1], 10, 32)
	if err != nil {
		return nil, "", errors.Wrapf(err, "table: invalid tsv version %q", metadata[1])
	}
	var filePath string
	if len(metadata) > 2 {
		filePath = metadata[2]
	}

	def, err := s.Definition(name, int32(version))
	if err != nil {
		return nil, "", err
	}
	if len(names) != len(def.Fields) {
		return nil, "", errors.Newf("table: tsv has %d columns, definition has %d fields", len(names), len(def.Fields))
	}
	for i, field := range def.Fields {
		if field.Type.IsSequence() {
			return nil, "", errors.Newf("table: sequence field %s cannot be imported from TSV", field.Name)
		}
		if names[i] != field.Name {
			return nil, "", errors.Newf("table: tsv column %d is %q, definition says %q", i+1, names[i], field.Name)
		}
	}

	t := New(name, def)
	for line := 3; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", errors.Wrapf(err, "table: read tsv line %d", line)
		}
		if len(record) != len(def.Fields) {
			return nil, "", errors.Newf("table: tsv line %d has %d values, definition has %d fields", line, len(record), len(def.Fields))
		}

		row := make(Row, 0, len(def.Fields))
		for i, field := range def.Fields {
			v, err := ParseValue(field.Type, record[i])
			if err != nil {
				return nil, "", errors.Wrapf(err, "table: tsv line %d, column %s", line, field.Name)
			}
			row = append(row, v)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, "", errors.Wrapf(err, "table: tsv line %d", line)
		}
	}

	return t, filePath, nil
}
