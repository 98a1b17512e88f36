// Package core holds the domain of notesd: tables of records, the notes
// built on top of them, and the contracts storage adapters implement.
package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
)

// IDField is the field injected into every record, equal to its key in the table.
const IDField = "id"

// Record is a field-name to value mapping representing one stored item.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// ID returns the value of the injected id field.
func (r Record) ID() (int, bool) {
	v, ok := r[IDField]
	if !ok {
		return 0, false
	}
	id, err := CoerceID(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// String returns the field as a string, reporting whether it was present and a string.
func (r Record) String(field string) (string, bool) {
	s, ok := r[field].(string)
	return s, ok
}

// CoerceID converts a decoded JSON value into a table key.
// Integers, integral floats, json.Number and decimal strings are accepted.
func CoerceID(v any) (int, error) {
	switch t := v.(type) {
	case int:
		if t < 0 {
			return 0, fmt.Errorf("%w: negative id %d", ErrInvalidRecord, t)
		}
		return t, nil
	case int64:
		return CoerceID(int(t))
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("%w: id %v is not an integer", ErrInvalidRecord, t)
		}
		return CoerceID(int(t))
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalidRecord, t.String())
		}
		return CoerceID(int(i))
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not an integer", ErrInvalidRecord, t)
		}
		return CoerceID(i)
	default:
		return 0, fmt.Errorf("%w: id of type %T", ErrInvalidRecord, v)
	}
}

// Table is a snapshot of one table: its records in iteration order.
type Table struct {
	Name    string
	Records []Record
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// Get returns the record stored under id.
func (t Table) Get(id int) (Record, bool) {
	for _, r := range t.Records {
		if rid, ok := r.ID(); ok && rid == id {
			return r, true
		}
	}
	return nil, false
}

// IDPolicy selects how new record ids are assigned.
type IDPolicy string

const (
	// IDPolicySize assigns id = current table size. After a deletion the new
	// id can equal the id of a live record, which is then overwritten.
	IDPolicySize IDPolicy = "size"
	// IDPolicyNext assigns id = highest live id + 1.
	IDPolicyNext IDPolicy = "next"
)

// ParseIDPolicy validates a textual policy name. Empty means IDPolicySize.
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch IDPolicy(s) {
	case "", IDPolicySize:
		return IDPolicySize, nil
	case IDPolicyNext:
		return IDPolicyNext, nil
	}
	return "", fmt.Errorf("unknown id policy %q", s)
}

// EventType represents the type of change in the store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// TableLevel is the Event.ID of events about a whole table.
const TableLevel = -1

// Event represents a change observed in the store.
type Event struct {
	Type      EventType
	Table     string
	ID        int
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	if e.ID == TableLevel {
		return fmt.Sprintf("%s %s", e.Type, e.Table)
	}
	return fmt.Sprintf("%s %s/%d", e.Type, e.Table, e.ID)
}
