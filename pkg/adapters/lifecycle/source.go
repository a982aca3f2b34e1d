// Package lifecycle exposes store change events as a lifecycle.Source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/tabnotes/pkg/core"
)

type changeSource struct {
	events <-chan core.Event
	keys   map[string]struct{}
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source emitting the core.Event values of
// events. With keys, only changes of those keys are emitted.
func NewSource(events <-chan core.Event, keys ...string) lifecycle.Source {
	s := &changeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(keys) > 0 {
		s.keys = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			s.keys[k] = struct{}{}
		}
	}
	return s
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *changeSource) wants(e core.Event) bool {
	if s.keys == nil {
		return true
	}
	_, ok := s.keys[e.ID]
	return ok
}

// Start forwards events until ctx is done or the input channel closes, then
// closes Events.
func (s *changeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
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
		}
	})
	return nil
}
