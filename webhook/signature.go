package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrMissingSignature means the header or the shared secret is absent;
	// nothing can be verified.
	ErrMissingSignature = errors.New("webhook: missing signature or secret")

	// ErrInvalidSignature means the digest does not match the body.
	ErrInvalidSignature = errors.New("webhook: invalid signature")
)

// VerifySignature checks the HMAC-SHA256 hex digest dbt Cloud sends in the
// authorization header against the raw request body, in constant time.
func VerifySignature(body []byte, header, secret string) error {
	if header == "" || secret == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(header)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the digest dbt Cloud would send for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
