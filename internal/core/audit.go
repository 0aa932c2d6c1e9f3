package core

import "time"

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "notification.parse", "certificate.refresh")
	Action string `json:"action"`

	// SignType of the inbound message, if any
	SignType string `json:"sign_type,omitempty"`

	// SerialNumber the message claimed to be signed with
	SerialNumber string `json:"serial_number,omitempty"`

	// Algorithm of the encrypted resource
	Algorithm string `json:"algorithm,omitempty"`

	// EventType from the notification envelope
	EventType string `json:"event_type,omitempty"`

	Success bool `json:"success"`

	// Kind classifies the failure (validation, malformed, decryption, ...)
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`

	// BodyFingerprint is a digest of the raw body, never the body itself
	BodyFingerprint string `json:"body_fingerprint,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
