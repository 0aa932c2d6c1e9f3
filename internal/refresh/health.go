package refresh

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/darmiel/paytrust/internal/core"
)

// KeyStatus describes one registry key.
type KeyStatus struct {
	Key                 core.RegistryKey `json:"key"`
	Registered          bool             `json:"registered"`
	Serials             []string         `json:"serials"`
	Available           string           `json:"available,omitempty"`
	AvailableNotAfter   time.Time        `json:"available_not_after,omitempty"`
	FetchedAt           time.Time        `json:"fetched_at"`
	LastAttempt         time.Time        `json:"last_attempt"`
	LastError           string           `json:"last_error,omitempty"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
}

// Status lists every key that has certificates, ordered by key.
func (s *Service) Status() []KeyStatus {
	s.mu.RLock()
	out := make([]KeyStatus, 0, len(s.states))
	for key, st := range s.states {
		_, registered := s.jobs[key]
		ks := KeyStatus{
			Key:        key,
			Registered: registered,
		}
		if snap := st.snapshot.Load(); snap != nil {
			ks.Serials = snap.Serials()
			ks.Available = snap.AvailableCertificate().SerialNumber
			ks.AvailableNotAfter = snap.AvailableCertificate().NotAfter
			ks.FetchedAt = snap.FetchedAt
		}
		st.mu.Lock()
		ks.LastAttempt = st.lastAttempt
		ks.LastError = st.lastError
		ks.ConsecutiveFailures = st.failures
		st.mu.Unlock()
		out = append(out, ks)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Stale reports whether the certificates of key were last downloaded more
// than maxStale ago. maxStale <= 0 disables the check. Register only succeeds
// after a first download, so a key without certificates is unknown to the
// service and never stale.
func (s *Service) Stale(key core.RegistryKey, maxStale time.Duration) bool {
	if maxStale <= 0 {
		return false
	}
	snap := s.Snapshot(key)
	if snap == nil {
		return false
	}
	return s.now().Sub(snap.FetchedAt) > maxStale
}

// StaleError lists the keys whose certificates exceeded the allowed age.
type StaleError struct {
	MaxStale time.Duration
	Keys     []core.RegistryKey
}

func (e *StaleError) Error() string {
	names := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		names[i] = k.String()
	}
	return fmt.Sprintf("certificates older than %s for: %s", e.MaxStale, strings.Join(names, ", "))
}

// Health returns a *StaleError if any key is stale, nil otherwise.
// maxStale <= 0 disables the check.
func (s *Service) Health(maxStale time.Duration) error {
	if maxStale <= 0 {
		return nil
	}
	var stale []core.RegistryKey
	for _, ks := range s.Status() {
		if s.Stale(ks.Key, maxStale) {
			stale = append(stale, ks.Key)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return &StaleError{MaxStale: maxStale, Keys: stale}
}
