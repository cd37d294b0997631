// Package auth verifies the credentials presented to admin routes.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("unauthorized")

// Principal is the authenticated caller.
type Principal struct {
	Subject string
}

// Verifier checks a bearer token and returns who presented it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// SharedSecret accepts exactly one configured token. It has no expiry and
// no per-user identity: every caller is the same admin principal.
type SharedSecret struct {
	digest [sha256.Size]byte
}

const AdminSubject = "admin"

func NewSharedSecret(secret string) *SharedSecret {
	return &SharedSecret{digest: sha256.Sum256([]byte(secret))}
}

// Verify compares digests in constant time, so neither content nor length leaks.
func (s *SharedSecret) Verify(_ context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	got := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(got[:], s.digest[:]) != 1 {
		return nil, ErrUnauthorized
	}
	return &Principal{Subject: AdminSubject}, nil
}
