package notification

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/core"
)

// Parser validates and decrypts platform notifications.
// It is immutable after construction and safe for concurrent use.
type Parser struct {
	verifiers map[string]core.Verifier
	ciphers   map[string]core.AeadCipher
}

// New registers the verifier of each config under its sign type and the
// cipher under its cipher type. Later configs replace earlier ones.
func New(configs ...Config) (*Parser, error) {
	if len(configs) == 0 {
		return nil, core.Configurationf("no notification config given")
	}
	p := &Parser{
		verifiers: make(map[string]core.Verifier, len(configs)),
		ciphers:   make(map[string]core.AeadCipher, len(configs)),
	}
	for _, cfg := range configs {
		if cfg == nil {
			return nil, core.Configurationf("notification config is nil")
		}
		p.verifiers[cfg.SignType()] = cfg.Verifier()
		p.ciphers[cfg.CipherType()] = cfg.Cipher()
	}
	return p, nil
}

// NewFromMaps builds a parser from prepared verifiers and ciphers.
func NewFromMaps(verifiers map[string]core.Verifier, ciphers map[string]core.AeadCipher) *Parser {
	return &Parser{
		verifiers: maps.Clone(verifiers),
		ciphers:   maps.Clone(ciphers),
	}
}

// SignTypes returns the sign types the parser accepts.
func (p *Parser) SignTypes() []string {
	out := make([]string, 0, len(p.verifiers))
	for k := range p.verifiers {
		out = append(out, k)
	}
	return out
}

// Parse verifies param, decrypts the resource and unmarshals the plaintext
// into target (if non-nil). Nothing is decrypted unless the signature
// verifies.
//
// Errors are *core.ValidationError for missing fields, unknown sign types and
// bad signatures, *core.MalformedMessageError for broken envelopes, unknown
// cipher algorithms and plaintext not fitting target, *core.DecryptionError
// if the authentication tag does not verify.
func (p *Parser) Parse(param core.RequestParam, target any) (*Notification, error) {
	if err := p.validate(param); err != nil {
		return nil, err
	}

	n, err := parseEnvelope(param.Body)
	if err != nil {
		return nil, err
	}

	res := n.Resource
	c, ok := p.ciphers[*res.Algorithm]
	if !ok {
		return nil, &core.MalformedMessageError{
			Reason: fmt.Sprintf("no cipher for algorithm '%s'", *res.Algorithm),
		}
	}

	ciphertext, err := base64.StdEncoding.DecodeString(*res.Ciphertext)
	if err != nil {
		return nil, &core.MalformedMessageError{Reason: "resource ciphertext is not valid base64", Err: err}
	}
	plaintext, err := c.Decrypt([]byte(*res.AssociatedData), []byte(*res.Nonce), ciphertext)
	if err != nil {
		log.Warn().
			Str("notification_id", n.ID).
			Str("serial", param.SerialNumber).
			Str("algorithm", *res.Algorithm).
			Err(err).
			Msg("could not decrypt notification resource")
		return nil, err
	}

	if !json.Valid(plaintext) {
		return nil, &core.MalformedMessageError{Reason: "decrypted resource is not JSON", Text: string(plaintext)}
	}
	n.Plaintext = plaintext

	if target != nil {
		if err := json.Unmarshal(plaintext, target); err != nil {
			return nil, &core.MalformedMessageError{
				Reason: "decrypted resource does not match target",
				Text:   string(plaintext),
				Err:    err,
			}
		}
	}
	return n, nil
}

// ParseAs is Parse with a typed result.
func ParseAs[T any](p *Parser, param core.RequestParam) (T, *Notification, error) {
	var target T
	n, err := p.Parse(param, &target)
	return target, n, err
}

func (p *Parser) validate(param core.RequestParam) error {
	required := []struct {
		name  string
		value string
	}{
		{"signType", param.SignType},
		{"serialNumber", param.SerialNumber},
		{"message", param.Message},
		{"signature", param.Signature},
		{"body", param.Body},
	}
	for _, f := range required {
		if f.value == "" {
			return core.Validationf("notification %s is empty. %s", f.name, param)
		}
	}

	verifier, ok := p.verifiers[param.SignType]
	if !ok {
		return core.Validationf("no verifier for sign type '%s'", param.SignType)
	}
	if !verifier.Verify(param.SerialNumber, param.Message, param.Signature) {
		return core.Validationf("signature verification failed, signType=%s serial=%s",
			param.SignType, param.SerialNumber)
	}
	return nil
}

func parseEnvelope(body string) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return nil, &core.MalformedMessageError{Reason: "notification body is not a valid envelope", Text: body, Err: err}
	}
	res := n.Resource
	if res == nil {
		return nil, &core.MalformedMessageError{Reason: "notification resource is missing", Text: body}
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"algorithm", res.Algorithm},
		{"ciphertext", res.Ciphertext},
		{"nonce", res.Nonce},
	}
	for _, f := range fields {
		if f.value == nil || *f.value == "" {
			return nil, &core.MalformedMessageError{Reason: fmt.Sprintf("notification resource %s is empty", f.name), Text: body}
		}
	}
	// associated data may be empty but must be present
	if res.AssociatedData == nil {
		return nil, &core.MalformedMessageError{Reason: "notification resource associated_data is missing", Text: body}
	}
	return &n, nil
}
