package notification

import (
	"net/http"

	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/signing"
)

const (
	HeaderSerial        = "Wechatpay-Serial"
	HeaderSignature     = "Wechatpay-Signature"
	HeaderSignatureType = "Wechatpay-Signature-Type"
	HeaderTimestamp     = "Wechatpay-Timestamp"
	HeaderNonce         = "Wechatpay-Nonce"
)

// Message builds the string the platform signs for a notification or response.
func Message(timestamp, nonce, body string) string {
	return timestamp + "\n" + nonce + "\n" + body + "\n"
}

// RequestParamFromHTTP builds a RequestParam from inbound notification
// headers. A missing signature type header means RSA. Missing headers are
// left empty and rejected by Parse.
func RequestParamFromHTTP(h http.Header, body string) core.RequestParam {
	signType := h.Get(HeaderSignatureType)
	if signType == "" {
		signType = signing.SignTypeRSA
	}
	param := core.RequestParam{
		SignType:     signType,
		SerialNumber: h.Get(HeaderSerial),
		Signature:    h.Get(HeaderSignature),
		Body:         body,
	}
	timestamp, nonce := h.Get(HeaderTimestamp), h.Get(HeaderNonce)
	if timestamp != "" && nonce != "" {
		param.Message = Message(timestamp, nonce, body)
	}
	return param
}
