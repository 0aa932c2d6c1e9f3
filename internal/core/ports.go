package core

// Signer signs outgoing messages with a single private key.
// Implementations are immutable and safe for concurrent use.
type Signer interface {
	// Sign signs message and returns the base64 signature together with the
	// serial number of the signing certificate.
	Sign(message string) (SignatureResult, error)

	// Algorithm returns the algorithm token, e.g. "SHA256-RSA2048".
	Algorithm() string
}

// Verifier verifies signatures produced by the platform.
// Implementations are immutable and safe for concurrent use.
type Verifier interface {
	// Verify reports whether signature is a valid signature over message by the
	// key identified by serial. It never returns an error for a bad request:
	// unknown serials, malformed signatures and mismatches all yield false.
	Verify(serial, message, signature string) bool

	// SerialNumber returns the id of the key this verifier currently prefers,
	// as sent in the Wechatpay-Serial request header.
	SerialNumber() string
}

// AeadCipher is an authenticated cipher bound to one key and one algorithm.
// Implementations are immutable and safe for concurrent use.
type AeadCipher interface {
	// Algorithm returns the algorithm token, e.g. "AEAD_AES_256_GCM".
	Algorithm() string

	Encrypt(associatedData, nonce, plaintext []byte) ([]byte, error)

	// Decrypt returns a *DecryptionError when the tag does not verify.
	Decrypt(associatedData, nonce, ciphertext []byte) ([]byte, error)
}

// CertificateProvider resolves platform certificates by serial number.
// Lookups must be safe while the underlying set is being refreshed.
type CertificateProvider interface {
	// Certificate returns the certificate with the given serial, if held.
	Certificate(serial string) (Certificate, bool)

	// AvailableCertificate returns the held certificate with the latest NotAfter.
	AvailableCertificate() (Certificate, bool)
}
