// SPDX-License-Identifier: MIT
/*
Package control exposes the filter chain to interactive clients: the
terminal panel and the WebSocket API.

Every operation goes through the filters' atomic setters, so a control
goroutine can run concurrently with the processing goroutine. A change is
picked up by the next Process call on the chain.

Thread Safety:
  - All Surface methods are safe for concurrent use
  - Subscribers are called on the goroutine that made the change, after
    the change has been stored
*/
package control

import (
	"errors"
	"fmt"
	"sync"

	"voiceshield/internal/filter"
	applog "voiceshield/internal/log"
)

var (
	// ErrUnknownFilter is returned for a filter name that is not in the chain.
	ErrUnknownFilter = errors.New("control: unknown filter")

	// ErrUnknownParam is returned for a parameter the filter does not have.
	ErrUnknownParam = errors.New("control: unknown parameter")

	// ErrInvalidCommand is returned for a command that changes nothing.
	ErrInvalidCommand = errors.New("control: invalid command")
)

// ParamState is a point-in-time view of one parameter.
type ParamState struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// FilterState is a point-in-time view of one filter.
type FilterState struct {
	Name    string       `json:"name"`
	Enabled bool         `json:"enabled"`
	Faulted bool         `json:"faulted,omitempty"`
	Params  []ParamState `json:"params"`
}

// Surface reads and writes the state of the filters in a chain.
type Surface struct {
	chain *filter.Chain

	mu          sync.Mutex
	subscribers map[int]func([]FilterState)
	nextID      int
}

// New returns a surface over chain.
func New(chain *filter.Chain) *Surface {
	return &Surface{
		chain:       chain,
		subscribers: make(map[int]func([]FilterState)),
	}
}

// State returns every filter in chain order.
func (s *Surface) State() []FilterState {
	filters := s.chain.Filters()
	out := make([]FilterState, 0, len(filters))
	for _, f := range filters {
		st := FilterState{
			Name:    f.Name(),
			Enabled: f.Enabled(),
			Faulted: s.chain.Faulted(f.Name()),
			Params:  []ParamState{},
		}
		if t, ok := f.(filter.Tunable); ok {
			for _, p := range t.Params() {
				st.Params = append(st.Params, ParamState{
					Name:  p.Name,
					Kind:  p.Kind.String(),
					Value: p.Value(),
					Min:   p.Min,
					Max:   p.Max,
				})
			}
		}
		out = append(out, st)
	}
	return out
}

// SetEnabled switches the named filter on or off.
func (s *Surface) SetEnabled(name string, enabled bool) error {
	t, err := s.tunable(name)
	if err != nil {
		return err
	}
	t.SetEnabled(enabled)
	applog.Debugf("Control: %s enabled=%v", name, enabled)
	s.notify()
	return nil
}

// Toggle flips the enabled flag of the named filter.
func (s *Surface) Toggle(name string) error {
	t, err := s.tunable(name)
	if err != nil {
		return err
	}
	return s.SetEnabled(name, !t.Enabled())
}

// SetParam validates and stores one parameter. Out of range values are
// rejected with filter.ErrOutOfRange and leave the stored value unchanged.
func (s *Surface) SetParam(name, param string, value float64) error {
	t, err := s.tunable(name)
	if err != nil {
		return err
	}
	p, err := lookupParam(t, param)
	if err != nil {
		return err
	}
	if err := p.Set(value); err != nil {
		return err
	}
	applog.Debugf("Control: %s.%s=%g", name, param, value)
	s.notify()
	return nil
}

func lookupParam(t filter.Tunable, param string) (filter.Param, error) {
	for _, p := range t.Params() {
		if p.Name == param {
			return p, nil
		}
	}
	return filter.Param{}, fmt.Errorf("%w: %s.%s", ErrUnknownParam, t.Name(), param)
}

// Subscribe registers fn to receive the full state after every accepted
// change. The returned function removes the subscription.
func (s *Surface) Subscribe(fn func([]FilterState)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Surface) notify() {
	s.mu.Lock()
	if len(s.subscribers) == 0 {
		s.mu.Unlock()
		return
	}
	fns := make([]func([]FilterState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	state := s.State()
	for _, fn := range fns {
		fn(state)
	}
}

func (s *Surface) tunable(name string) (filter.Tunable, error) {
	f, ok := s.chain.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	t, ok := f.(filter.Tunable)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not tunable", ErrUnknownFilter, name)
	}
	return t, nil
}
