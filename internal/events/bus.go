// Package events carries due-reminder notifications from the scanner to
// in-process consumers.
package events

import "time"

// ReminderDue is published once per reminder when the scanner first sees it
// past its scheduled time. Only identifiers and delivery text are carried;
// consumers fetch the full record when they need more.
type ReminderDue struct {
	RecordID     string
	ReminderID   string
	ScheduledFor time.Time
	Message      string
}

// Bus is a lightweight in-process pub-sub backed by a buffered channel.
type Bus struct {
	ch chan ReminderDue
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan ReminderDue, buffer)}
}

// Publish attempts to enqueue without blocking. Returns false when the
// buffer is full; the scanner retries on its next pass.
func (b *Bus) Publish(evt ReminderDue) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

// Subscribe returns the read-only consumer channel.
func (b *Bus) Subscribe() <-chan ReminderDue {
	return b.ch
}
