// Package crypto signs outbound billing payloads so the receiver can authenticate them.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const signaturePrefix = "sha256="

var (
	ErrEmptySecret      = errors.New("signing secret must not be empty")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer produces HMAC-SHA256 signatures in the "sha256=<hex>" form.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Sign(payload []byte) string {
	return signaturePrefix + hex.EncodeToString(s.mac(payload))
}

// Verify checks signature against payload in constant time.
func (s *Signer) Verify(payload []byte, signature string) error {
	raw, ok := strings.CutPrefix(signature, signaturePrefix)
	if !ok {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(raw)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(got, s.mac(payload)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}
