package fs

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/aretw0/notesd/pkg/core"
)

// rows maps record id to record, in insertion order.
type rows = orderedmap.OrderedMap[int, core.Record]

// snapshot maps table name to rows, in insertion order.
// It is the in-memory mirror of the whole backing file.
type snapshot = orderedmap.OrderedMap[string, *rows]

func newSnapshot() *snapshot {
	return orderedmap.New[string, *rows]()
}

func newRows() *rows {
	return orderedmap.New[int, core.Record]()
}

// decodeSnapshot parses the backing file content:
//
//	{"<table>": {"<id>": {"id": <id>, ...}, ...}, ...}
//
// Any other shape is reported as core.ErrCorrupt.
func decodeSnapshot(data []byte) (*snapshot, error) {
	snap := newSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorrupt, err)
	}

	for t := snap.Oldest(); t != nil; t = t.Next() {
		if t.Value == nil {
			return nil, fmt.Errorf("%w: table %q is not an object", core.ErrCorrupt, t.Key)
		}
		for r := t.Value.Oldest(); r != nil; r = r.Next() {
			if r.Value == nil {
				return nil, fmt.Errorf("%w: record %s/%d is not an object", core.ErrCorrupt, t.Key, r.Key)
			}
			if id, ok := r.Value.ID(); !ok || id != r.Key {
				return nil, fmt.Errorf("%w: record %s/%d has a mismatched id field", core.ErrCorrupt, t.Key, r.Key)
			}
		}
	}
	return snap, nil
}

// encodeSnapshot renders the snapshot as indented JSON.
func encodeSnapshot(snap *snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode store: %w", err)
	}
	return append(data, '\n'), nil
}

func checksum(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// tableSnapshot converts rows into a detached core.Table.
func tableSnapshot(name string, rs *rows) core.Table {
	t := core.Table{Name: name, Records: make([]core.Record, 0, rs.Len())}
	for r := rs.Oldest(); r != nil; r = r.Next() {
		t.Records = append(t.Records, r.Value.Clone())
	}
	return t
}

// diffSnapshots lists the changes turning before into after, restricted to
// tables accepted by match.
func diffSnapshots(before, after *snapshot, match func(table string) bool) []core.Event {
	now := time.Now().Unix()
	var events []core.Event
	emit := func(typ core.EventType, table string, id int) {
		events = append(events, core.Event{Type: typ, Table: table, ID: id, Timestamp: now})
	}

	for t := after.Oldest(); t != nil; t = t.Next() {
		if !match(t.Key) {
			continue
		}
		old, existed := before.Get(t.Key)
		if !existed {
			emit(core.EventCreate, t.Key, core.TableLevel)
			old = newRows()
		}
		for r := t.Value.Oldest(); r != nil; r = r.Next() {
			prev, ok := old.Get(r.Key)
			switch {
			case !ok:
				emit(core.EventCreate, t.Key, r.Key)
			case !reflect.DeepEqual(prev, r.Value):
				emit(core.EventModify, t.Key, r.Key)
			}
		}
		for r := old.Oldest(); r != nil; r = r.Next() {
			if _, ok := t.Value.Get(r.Key); !ok {
				emit(core.EventDelete, t.Key, r.Key)
			}
		}
	}

	for t := before.Oldest(); t != nil; t = t.Next() {
		if !match(t.Key) {
			continue
		}
		if _, ok := after.Get(t.Key); !ok {
			emit(core.EventDelete, t.Key, core.TableLevel)
		}
	}
	return events
}
