package credential

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/notification"
)

const (
	// MaxResponseSkew is how far a response timestamp may deviate from now.
	MaxResponseSkew = 5 * time.Minute

	HeaderRequestID = "Request-ID"
)

// Validator checks signatures of synchronous API responses.
type Validator struct {
	verifier core.Verifier
	now      func() time.Time
}

func NewValidator(verifier core.Verifier) *Validator {
	return &Validator{
		verifier: verifier,
		now:      time.Now,
	}
}

// SerialNumber is the platform serial to announce in Wechatpay-Serial.
func (v *Validator) SerialNumber() string {
	return v.verifier.SerialNumber()
}

// Validate returns a *core.ValidationError if the response is not signed by
// the platform or its timestamp is outside MaxResponseSkew.
func (v *Validator) Validate(h http.Header, body string) error {
	requestID := h.Get(HeaderRequestID)
	serial := h.Get(notification.HeaderSerial)
	signature := h.Get(notification.HeaderSignature)
	timestamp := h.Get(notification.HeaderTimestamp)
	nonce := h.Get(notification.HeaderNonce)

	required := []struct {
		name  string
		value string
	}{
		{notification.HeaderSerial, serial},
		{notification.HeaderSignature, signature},
		{notification.HeaderTimestamp, timestamp},
		{notification.HeaderNonce, nonce},
	}
	for _, f := range required {
		if f.value == "" {
			return core.Validationf("response header %s is empty, request-id=%s", f.name, requestID)
		}
	}

	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return &core.ValidationError{Reason: "response timestamp is not a number, request-id=" + requestID, Err: err}
	}
	skew := v.now().Sub(time.Unix(sec, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > MaxResponseSkew {
		return core.Validationf("response timestamp %s is %s off, request-id=%s", timestamp, skew.Round(time.Second), requestID)
	}

	if !v.verifier.Verify(serial, notification.Message(timestamp, nonce, body), signature) {
		log.Warn().
			Str("request_id", requestID).
			Str("serial", serial).
			Msg("response signature verification failed")
		return core.Validationf("response signature verification failed, serial=%s request-id=%s", serial, requestID)
	}
	return nil
}
