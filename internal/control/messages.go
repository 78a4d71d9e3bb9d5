// SPDX-License-Identifier: MIT
package control

import (
	"encoding/json"
	"fmt"

	applog "voiceshield/internal/log"
)

// Message types sent to clients.
const (
	TypeState = "state"
	TypeError = "error"
)

// Command is a client request. Enabled, Param/Value or both may be set:
//
//	{"filter":"noise","enabled":false}
//	{"filter":"noise","param":"amplitude","value":50}
type Command struct {
	Filter  string   `json:"filter"`
	Enabled *bool    `json:"enabled,omitempty"`
	Param   string   `json:"param,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// Message is sent to clients: the full state after connect and after every
// accepted change, or an error for a rejected command.
type Message struct {
	Type    string        `json:"type"`
	Client  string        `json:"client,omitempty"`
	Filters []FilterState `json:"filters,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// StateMessage wraps a state snapshot for broadcasting.
func StateMessage(filters []FilterState) Message {
	return Message{Type: TypeState, Filters: filters}
}

// Apply executes cmd. The whole command is validated before anything is
// stored, so a rejected command changes nothing and notifies no one.
func (s *Surface) Apply(cmd Command) error {
	if cmd.Filter == "" {
		return fmt.Errorf("%w: missing filter", ErrInvalidCommand)
	}
	if cmd.Enabled == nil && cmd.Param == "" {
		return fmt.Errorf("%w: nothing to change on %q", ErrInvalidCommand, cmd.Filter)
	}
	if cmd.Param != "" && cmd.Value == nil {
		return fmt.Errorf("%w: %s.%s has no value", ErrInvalidCommand, cmd.Filter, cmd.Param)
	}

	t, err := s.tunable(cmd.Filter)
	if err != nil {
		return err
	}
	if cmd.Param != "" {
		p, err := lookupParam(t, cmd.Param)
		if err != nil {
			return err
		}
		if err := p.Check(*cmd.Value); err != nil {
			return err
		}
		if err := p.Set(*cmd.Value); err != nil {
			return err
		}
	}
	if cmd.Enabled != nil {
		t.SetEnabled(*cmd.Enabled)
	}
	applog.Debugf("Control: applied command on %s", cmd.Filter)
	s.notify()
	return nil
}

// Welcome returns the greeting for a newly connected client.
func (s *Surface) Welcome(clientID string) any {
	return Message{Type: TypeState, Client: clientID, Filters: s.State()}
}

// Handle decodes and applies one JSON command. It returns an error message
// for the sender when the command is rejected and nil otherwise; the new
// state reaches every client through the subscription.
func (s *Surface) Handle(clientID string, data []byte) any {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Message{Type: TypeError, Client: clientID, Error: fmt.Sprintf("malformed command: %v", err)}
	}
	if err := s.Apply(cmd); err != nil {
		return Message{Type: TypeError, Client: clientID, Error: err.Error()}
	}
	return nil
}
