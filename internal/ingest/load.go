// Package ingest loads verse datasets from JSON or CSV files into the verse
// table.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Row is one input record keyed by column name. Numbers keep their textual form.
type Row map[string]string

// LoadFile reads rows from a .json or .csv file.
func LoadFile(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".csv":
		return ParseCSV(bytes.NewReader(data))
	default:
		return nil, errors.New("unsupported file type, use .json or .csv")
	}
}

// ParseJSON accepts an array of objects or {"verses": [...]}.
func ParseJSON(data []byte) ([]Row, error) {
	var raw []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Verses []map[string]any `json:"verses"`
		}
		if err := dec.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if wrapped.Verses == nil {
			return nil, errors.New("json must be an array or {\"verses\": []}")
		}
		raw = wrapped.Verses
	} else if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	rows := make([]Row, 0, len(raw))
	for _, obj := range raw {
		row := make(Row, len(obj))
		for k, v := range obj {
			switch val := v.(type) {
			case nil:
			case string:
				row[k] = val
			case json.Number:
				row[k] = val.String()
			default:
				row[k] = fmt.Sprint(val)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCSV reads a header row followed by records. Short records leave the
// missing columns empty.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
