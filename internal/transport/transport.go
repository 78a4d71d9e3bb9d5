// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending state updates and
// monitor reports to observers outside the process.
// Implementations should be thread-safe and must never block the caller
// for longer than a non-blocking enqueue.
type Transport interface {
	Send(data any) error
	Close() error
}

// Handler answers clients of a bidirectional transport.
type Handler interface {
	// Welcome returns the first message sent to a newly connected client.
	Welcome(clientID string) any
	// Handle processes one message from a client and returns an optional
	// reply for that client alone. A nil reply sends nothing.
	Handle(clientID string, data []byte) any
}
