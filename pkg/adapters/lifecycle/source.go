// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"
	"slices"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notesd/pkg/core"
)

// storeSource forwards store events whose type is in types. An empty
// types set forwards everything.
type storeSource struct {
	events <-chan core.Event
	types  []core.EventType
	out    chan lifecycle.Event
}

// NewSource wraps a store event channel, keeping only events of the given
// types. The returned source closes its channel when events is closed or
// the context given to Start is done.
func NewSource(events <-chan core.Event, types ...core.EventType) lifecycle.Source {
	return &storeSource{
		events: events,
		types:  types,
		out:    make(chan lifecycle.Event),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *storeSource) wants(e core.Event) bool {
	return len(s.types) == 0 || slices.Contains(s.types, e.Type)
}

func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var e core.Event
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-s.events:
				if !ok {
					return nil
				}
				e = ev
			}
			if !s.wants(e) {
				continue
			}
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}

// ParseEventTypes converts names such as "create" or "DELETE" to event
// types. Unknown names are reported in the second return value.
func ParseEventTypes(names []string) ([]core.EventType, []string) {
	var types []core.EventType
	var unknown []string
	for _, name := range names {
		switch t := core.EventType(strings.ToUpper(name)); t {
		case core.EventCreate, core.EventModify, core.EventDelete:
			if !slices.Contains(types, t) {
				types = append(types, t)
			}
		default:
			unknown = append(unknown, name)
		}
	}
	return types, unknown
}
