package credential

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/signing"
)

const (
	// NonceLength is the length of the random nonce_str.
	NonceLength = 32

	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Credential builds Authorization header values for outbound API requests.
type Credential struct {
	merchantID string
	signer     core.Signer

	now    func() time.Time
	random io.Reader
}

func New(merchantID string, signer core.Signer) (*Credential, error) {
	if merchantID == "" {
		return nil, core.Configurationf("merchant id is required")
	}
	if signer == nil {
		return nil, core.Configurationf("signer is required")
	}
	return &Credential{
		merchantID: merchantID,
		signer:     signer,
		now:        time.Now,
		random:     rand.Reader,
	}, nil
}

// Schema is the authorization scheme, e.g. "WECHATPAY2-SHA256-RSA2048".
func (c *Credential) Schema() string {
	return signing.SignType(c.signer.Algorithm())
}

func (c *Credential) MerchantID() string {
	return c.merchantID
}

// Authorization signs one request and returns the complete header value.
// body is the exact request body (empty for GET).
func (c *Credential) Authorization(uri *url.URL, method, body string) (string, error) {
	nonce, err := c.nonce()
	if err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	res, err := c.signer.Sign(CanonicalMessage(method, uri, timestamp, nonce, body))
	if err != nil {
		return "", err
	}

	token := fmt.Sprintf(`mchid="%s",nonce_str="%s",timestamp="%s",serial_no="%s",signature="%s"`,
		c.merchantID, nonce, timestamp, res.SerialNumber, res.Signature)
	return c.Schema() + " " + token, nil
}

// CanonicalMessage is the string signed for a request:
// METHOD, path with query, timestamp, nonce and body, each followed by "\n".
func CanonicalMessage(method string, uri *url.URL, timestamp, nonce, body string) string {
	target := uri.EscapedPath()
	if target == "" {
		target = "/"
	}
	if uri.RawQuery != "" {
		target += "?" + uri.RawQuery
	}
	return method + "\n" + target + "\n" + timestamp + "\n" + nonce + "\n" + body + "\n"
}

func (c *Credential) nonce() (string, error) {
	limit := big.NewInt(int64(len(nonceAlphabet)))
	buf := make([]byte, NonceLength)
	for i := range buf {
		n, err := rand.Int(c.random, limit)
		if err != nil {
			return "", err
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
