// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "voiceshield/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level. It is used when no network transport is configured.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if applog.GetLevel() <= applog.LevelDebug {
		applog.WithFields(applog.Fields{
			"seq":  n,
			"data": data,
		}).Debugf("Transport: %T", data)
	}
	return nil // Logging transport never fails to "send"
}

// Sent returns the number of messages passed to Send.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
