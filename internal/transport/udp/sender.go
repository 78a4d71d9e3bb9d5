// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	applog "voiceshield/internal/log"
	"voiceshield/internal/transport"
)

// MaxDatagram is the largest payload Send will transmit.
const MaxDatagram = 65507

// ErrTooLarge is returned when an encoded message does not fit one datagram.
var ErrTooLarge = errors.New("udp: message exceeds datagram size")

// Sender sends every message as one JSON-encoded UDP datagram.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn during Close
	closed bool
	errors int
}

// NewSender creates a new Sender targeting the specified address.
// The address should be in the format "host:port", e.g., "127.0.0.1:9090".
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// No local bind is needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Sending to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send encodes data as JSON and transmits it as a single packet.
// It is safe for concurrent use.
func (s *Sender) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("udp: encode %T: %w", data, err)
	}
	if len(payload) > MaxDatagram {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transport.ErrClosed
	}

	if _, err := s.conn.Write(payload); err != nil {
		// A missing listener shows up here as "connection refused"; log it sparingly.
		s.errors++
		if s.errors == 1 || s.errors%100 == 0 {
			applog.Warnf("UDP Sender: Error sending packet (%d errors): %v", s.errors, err)
		}
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying UDP connection.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed
	}
	s.closed = true

	applog.Debugf("UDP Sender: Closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

// Ensure Sender satisfies the Transport interface.
var _ transport.Transport = (*Sender)(nil)
