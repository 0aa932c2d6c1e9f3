package notification

import "encoding/json"

// Notification is the envelope the platform posts to the notify url.
type Notification struct {
	ID           string    `json:"id"`
	CreateTime   string    `json:"create_time"`
	EventType    string    `json:"event_type"`
	ResourceType string    `json:"resource_type"`
	Summary      string    `json:"summary"`
	Resource     *Resource `json:"resource"`

	// Plaintext is the decrypted resource, filled in by Parse.
	Plaintext json.RawMessage `json:"plaintext,omitempty"`
}

// Resource is the encrypted part of a Notification. Pointers distinguish a
// missing field from an empty one.
type Resource struct {
	Algorithm      *string `json:"algorithm"`
	Ciphertext     *string `json:"ciphertext"`
	AssociatedData *string `json:"associated_data"`
	Nonce          *string `json:"nonce"`
	OriginalType   string  `json:"original_type,omitempty"`
}

// AlgorithmName returns the algorithm or "" if missing.
func (r *Resource) AlgorithmName() string {
	if r == nil || r.Algorithm == nil {
		return ""
	}
	return *r.Algorithm
}
