package fs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notesd/pkg/core"
)

// Serializer reads and writes the records of one table in a file format.
// It is used to export a table from the store file and to import records
// into it.
type Serializer interface {
	// Encode writes the records of t in table order.
	Encode(w io.Writer, t core.Table) error
	// Decode reads records. Their id fields are left as found.
	Decode(r io.Reader) ([]core.Record, error)
}

// DefaultSerializers returns the standard set of serializers keyed by file extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
		".csv":  CSVSerializer{},
	}
}

// SerializerFor picks a serializer from the extension of path, or from a
// bare format name such as "yaml".
func SerializerFor(path string) (Serializer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "." + strings.ToLower(path)
	}
	s, ok := DefaultSerializers()[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", path)
	}
	return s, nil
}

// --- JSON Serializer ---

// JSONSerializer handles a JSON array of objects.
type JSONSerializer struct{}

func (JSONSerializer) Encode(w io.Writer, t core.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nonNil(t.Records))
}

func (JSONSerializer) Decode(r io.Reader) ([]core.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []core.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return checkRecords(records)
}

// --- YAML Serializer ---

// YAMLSerializer handles a YAML sequence of mappings.
type YAMLSerializer struct{}

func (YAMLSerializer) Encode(w io.Writer, t core.Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(t.Records)); err != nil {
		return err
	}
	return enc.Close()
}

func (YAMLSerializer) Decode(r io.Reader) ([]core.Record, error) {
	var records []core.Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return []core.Record{}, nil
		}
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return checkRecords(records)
}

// --- CSV Serializer ---

// CSVSerializer handles a header row followed by one row per record.
// The id column comes first, the other columns are sorted by name.
type CSVSerializer struct{}

func (CSVSerializer) Encode(w io.Writer, t core.Table) error {
	columns := csvColumns(t.Records)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range t.Records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := r[col]; ok && v != nil {
				row[i] = MarshalCSVValue(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (CSVSerializer) Decode(r io.Reader) ([]core.Record, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records := []core.Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rec := make(core.Record, len(headers))
		for i, h := range headers {
			rec[h] = UnmarshalCSVValue(row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func csvColumns(records []core.Record) []string {
	seen := map[string]bool{core.IDField: true}
	var rest []string
	for _, r := range records {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	slices.Sort(rest)
	return append([]string{core.IDField}, rest...)
}

// --- Helpers ---

// UnmarshalCSVValue parses a cell as JSON when it looks like an object or
// an array, and returns it unchanged otherwise.
//
// CAVEAT: a plain string that happens to be valid JSON (e.g. "[1]") is read
// back as an array.
func UnmarshalCSVValue(val string) any {
	trimmed := strings.TrimSpace(val)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var parsed any
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&parsed); err == nil {
			return parsed
		}
	}
	return val
}

// MarshalCSVValue renders a cell, using JSON for maps and slices.
func MarshalCSVValue(v any) string {
	switch v.(type) {
	case map[string]any, []any, map[string]string, []string, core.Record:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}

func nonNil(records []core.Record) []core.Record {
	if records == nil {
		return []core.Record{}
	}
	return records
}

func checkRecords(records []core.Record) ([]core.Record, error) {
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: entry %d is not an object", core.ErrInvalidRecord, i)
		}
	}
	return nonNil(records), nil
}
