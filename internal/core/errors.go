package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is against these to classify a failure:
//
//	ErrConfiguration    invalid key material or unsupported algorithm, raised at build time
//	ErrValidation       missing fields, unknown sign type or failed signature
//	ErrMalformedMessage unparseable envelope / plaintext or unknown cipher algorithm
//	ErrDecryption       AEAD tag check failed
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrValidation       = errors.New("validation failed")
	ErrMalformedMessage = errors.New("malformed message")
	ErrDecryption       = errors.New("decryption failed")
)

// ConfigurationError means the system is not usable as configured.
type ConfigurationError struct {
	Reason string
	Err    error
}

func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return kindMessage(ErrConfiguration, e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ValidationError rejects a single request or notification.
type ValidationError struct {
	Reason string
	Err    error
}

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return kindMessage(ErrValidation, e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error        { return e.Err }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MalformedMessageError is returned when a message cannot be parsed.
// Text holds the offending input for diagnosis.
type MalformedMessageError struct {
	Reason string
	Text   string
	Err    error
}

func (e *MalformedMessageError) Error() string {
	msg := kindMessage(ErrMalformedMessage, e.Reason, e.Err)
	if e.Text != "" {
		msg += textSuffix(e.Text)
	}
	return msg
}

func textSuffix(text string) string {
	return fmt.Sprintf(" (text: %q)", text)
}

func (e *MalformedMessageError) Unwrap() error        { return e.Err }
func (e *MalformedMessageError) Is(target error) bool { return target == ErrMalformedMessage }

// DecryptionError is returned when an authentication tag does not verify,
// i.e. the ciphertext, nonce, associated data or key do not match.
type DecryptionError struct {
	Algorithm string
	Err       error
}

func (e *DecryptionError) Error() string {
	return kindMessage(ErrDecryption, e.Algorithm, e.Err)
}

func (e *DecryptionError) Unwrap() error        { return e.Err }
func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }

// SafeMessage is err.Error() without the input text carried by any
// MalformedMessageError in the chain. That text may be decrypted payment data,
// so audit entries and logs use SafeMessage instead of Error.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var strip func(error)
	strip = func(e error) {
		switch x := e.(type) {
		case nil:
			return
		case *MalformedMessageError:
			if x.Text != "" {
				msg = strings.ReplaceAll(msg, textSuffix(x.Text), "")
			}
			strip(x.Err)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				strip(inner)
			}
		case interface{ Unwrap() error }:
			strip(x.Unwrap())
		}
	}
	strip(err)
	return msg
}

func kindMessage(kind error, reason string, err error) string {
	msg := kind.Error()
	if reason != "" {
		msg += ": " + reason
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}
