package service

import (
	"time"

	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/refresh"
)

type NotificationRequest struct {
	// CorrelationID is recorded as the audit entry id.
	CorrelationID string

	// MerchantID selects the merchant whose keys validate the notification.
	MerchantID string

	Param core.RequestParam
}

// CertificateSet lists the platform certificates one merchant currently trusts.
type CertificateSet struct {
	MerchantID string `json:"merchant_id"`
	Algorithm  string `json:"algorithm"`

	// Source is "static", "auto" or "public_key".
	Source      string `json:"source"`
	PublicKeyID string `json:"public_key_id,omitempty"`

	Certificates []CertificateView `json:"certificates"`

	// Refresh is only set for automatically refreshed sources.
	Refresh *refresh.KeyStatus `json:"refresh,omitempty"`
}

type CertificateView struct {
	SerialNumber string    `json:"serial_number"`
	NotAfter     time.Time `json:"not_after"`
	Available    bool      `json:"available"`
}

type AuthorizeRequest struct {
	MerchantID string
	Method     string
	URL        string
	Body       string
}

type AuthorizeResponse struct {
	Authorization string `json:"authorization"`
	// Serial is the platform serial to send as Wechatpay-Serial.
	Serial string `json:"serial,omitempty"`
}
