package clients

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/folio/internal/domain"
)

// Signer produces a message authentication code for a request query string.
type Signer interface {
	Sign(message, secret string) (string, error)
}

// HMACSigner signs messages with HMAC-SHA256 and returns the lowercase hex digest.
type HMACSigner struct{}

// NewHMACSigner creates a new HMAC-SHA256 signer.
func NewHMACSigner() *HMACSigner {
	return &HMACSigner{}
}

// Sign computes HMAC-SHA256 over message keyed by secret.
func (s *HMACSigner) Sign(message, secret string) (string, error) {
	if secret == "" {
		return "", &domain.SignatureError{Err: errors.New("secret is empty")}
	}
	if !utf8.ValidString(secret) {
		return "", &domain.SignatureError{Err: errors.New("secret is not valid UTF-8")}
	}
	if !utf8.ValidString(message) {
		return "", &domain.SignatureError{Err: errors.New("message is not valid UTF-8")}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write([]byte(message)); err != nil {
		return "", &domain.SignatureError{Err: errors.Wrap(err, "hash message")}
	}

	return hex.EncodeToString(mac.Sum(nil)), nil
}
