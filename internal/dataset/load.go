package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// LoadFile reads a dataset, choosing the decoder from the file extension.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f)
	case ".csv":
		return LoadCSV(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadJSON accepts either an array of objects or an object with an
// "applications" (or "rows") array.
func LoadJSON(r io.Reader) (*Table, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json dataset: %w", err)
	}
	return fromDocument(doc)
}

// LoadYAML accepts the same shapes as LoadJSON.
func LoadYAML(r io.Reader) (*Table, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("decode yaml dataset: %w", err)
	}
	return fromDocument(doc)
}

// LoadCSV reads a header row followed by records. Cells stay trimmed strings
// so categorical values such as "01" keep their spelling; Table.Ints does the
// numeric conversion. Empty cells are left out of the row.
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record %d: %w", len(rows)+1, err)
		}
		row := make(Row, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			row[header[i]] = cell
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

func fromDocument(doc any) (*Table, error) {
	switch v := doc.(type) {
	case nil:
		return New(nil), nil
	case []any:
		return fromList(v)
	case map[string]any:
		for _, key := range []string{"applications", "rows"} {
			if list, ok := v[key].([]any); ok {
				return fromList(list)
			}
		}
		return nil, fmt.Errorf("dataset object must contain an \"applications\" array")
	default:
		return nil, fmt.Errorf("dataset must be an array of objects, got %T", doc)
	}
}

func fromList(list []any) (*Table, error) {
	rows := make([]Row, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dataset entry %d is %T, expected an object", i, item)
		}
		rows = append(rows, Row(obj))
	}
	return New(rows), nil
}
