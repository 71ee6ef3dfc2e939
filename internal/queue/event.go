// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

// MailRequestedEvent asks the mail worker to deliver a notification. The
// recipient and sender come from the worker's mail settings, not from the
// message.
type MailRequestedEvent struct {
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	RequestedAt string `json:"requested_at"`
	RequestID   string `json:"request_id,omitempty"`
}
