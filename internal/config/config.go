package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/darmiel/paytrust/internal/signing"
)

const (
	CertificateSourceStatic = "static"
	CertificateSourceAuto   = "auto"

	// APIv3KeyLength is the length of the merchant api v3 key.
	APIv3KeyLength = 32

	DefaultBaseURL = "https://api.mch.weixin.qq.com"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Refresh   RefreshConfig    `yaml:"refresh"`
	Merchants []MerchantConfig `yaml:"merchants"`
	Audit     AuditConfig      `yaml:"audit"`
}

type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// MaxBodyBytes limits the size of notification bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// AdminKey signs admin session tokens. Admin endpoints are unauthenticated
	// when it is empty.
	AdminKey string `yaml:"admin_key"`
}

type RefreshConfig struct {
	// Interval between two certificate refresh ticks. Defaults to 60m.
	Interval time.Duration `yaml:"interval"`

	// MaxStale is the maximum age of a downloaded certificate set before the
	// health check fails. Zero disables the check.
	MaxStale time.Duration `yaml:"max_stale"`
}

// MerchantConfig holds the key material of one merchant.
type MerchantConfig struct {
	ID string `yaml:"id"`

	// SerialNumber is the serial of the merchant api certificate.
	SerialNumber string `yaml:"serial_number"`

	// PrivateKeyPath points to the merchant private key in PEM format.
	PrivateKeyPath string `yaml:"private_key_path"`

	// APIv3Key is the symmetric key used for notification and certificate decryption.
	APIv3Key string `yaml:"api_v3_key"`

	// Algorithm is the signature algorithm, e.g. "SHA256-RSA2048" or "SM2-WITH-SM3".
	Algorithm string `yaml:"algorithm"`

	// Certificates configures where platform certificates come from.
	Certificates *CertificateSourceConfig `yaml:"certificates,omitempty"`

	// PublicKeyID and PublicKeyPath configure a pinned platform public key.
	PublicKeyID   string `yaml:"public_key_id"`
	PublicKeyPath string `yaml:"public_key_path"`
}

// CertificateSourceConfig selects a certificate source by type.
type CertificateSourceConfig struct {
	Type   string         `yaml:"type"`    // e.g., "static", "auto"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// StaticCertificateOptions are the options of a "static" certificate source.
type StaticCertificateOptions struct {
	Paths []string `mapstructure:"paths"`
}

// AutoCertificateOptions are the options of an "auto" certificate source.
type AutoCertificateOptions struct {
	// BaseURL of the platform API. Defaults to DefaultBaseURL.
	BaseURL string `mapstructure:"base_url"`

	// Timeout of a single certificate download request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CipherConfig binds a symmetric key to an AEAD algorithm.
type CipherConfig struct {
	Algorithm string
	Key       string
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	if c.Refresh.MaxStale < 0 {
		return fmt.Errorf("refresh max_stale must not be negative")
	}
	if len(c.Merchants) == 0 {
		return fmt.Errorf("at least one merchant is required")
	}

	seen := make(map[string]struct{}, len(c.Merchants))
	for idx := range c.Merchants {
		m := &c.Merchants[idx]
		if err := m.Validate(); err != nil {
			return fmt.Errorf("merchant at index %d: %w", idx, err)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("merchant %q is configured more than once", m.ID)
		}
		seen[m.ID] = struct{}{}
	}

	switch c.Audit.Type {
	case "", "memory":
	case "file":
		if c.Audit.Enabled && c.Audit.Path == "" {
			return fmt.Errorf("audit type 'file' requires a path")
		}
	default:
		return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
	}
	return nil
}

func (m *MerchantConfig) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.SerialNumber == "" {
		return fmt.Errorf("serial_number is required")
	}
	if m.PrivateKeyPath == "" {
		return fmt.Errorf("private_key_path is required")
	}
	if len(m.APIv3Key) != APIv3KeyLength {
		return fmt.Errorf("api_v3_key must be %d bytes, got %d", APIv3KeyLength, len(m.APIv3Key))
	}
	if m.Algorithm == "" {
		m.Algorithm = signing.AlgorithmRSA
	}
	if _, err := signing.Family(m.Algorithm); err != nil {
		return err
	}
	if (m.PublicKeyID == "") != (m.PublicKeyPath == "") {
		return fmt.Errorf("public_key_id and public_key_path must be set together")
	}
	if m.Certificates == nil {
		if m.PublicKeyID == "" {
			return fmt.Errorf("either certificates or a public key is required")
		}
		return nil
	}
	switch m.Certificates.Type {
	case CertificateSourceStatic:
		opts, err := m.Certificates.Static()
		if err != nil {
			return err
		}
		if len(opts.Paths) == 0 {
			return fmt.Errorf("static certificates require at least one path")
		}
	case CertificateSourceAuto:
		if _, err := m.Certificates.Auto(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown certificate source type '%s'", m.Certificates.Type)
	}
	return nil
}

func (s *CertificateSourceConfig) Static() (StaticCertificateOptions, error) {
	var opts StaticCertificateOptions
	if err := decode(s.Config, &opts); err != nil {
		return opts, fmt.Errorf("decoding static certificate options: %w", err)
	}
	return opts, nil
}

func (s *CertificateSourceConfig) Auto() (AutoCertificateOptions, error) {
	var opts AutoCertificateOptions
	if err := decode(s.Config, &opts); err != nil {
		return opts, fmt.Errorf("decoding auto certificate options: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return opts, nil
}

func decode(input map[string]any, output any) error {
	fields := make(map[string]any, len(input))
	for k, v := range input {
		if k == "type" {
			continue
		}
		fields[k] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}
