package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// PINVerifier abstracts how cashier PINs are stored and compared so the
// credential scheme can be hardened without touching the login flow.
type PINVerifier interface {
	Hash(pin string) (string, error)
	Verify(pin, stored string) (bool, error)
}

// PlainPIN compares PINs in plaintext. This reproduces the observed
// behaviour of the system and is NOT suitable for production use; switch
// AUTH_PIN_SCHEME to argon2id before deploying anywhere real.
type PlainPIN struct{}

// Hash stores the PIN as-is.
func (PlainPIN) Hash(pin string) (string, error) { return pin, nil }

// Verify compares in constant time to at least avoid timing leaks.
func (PlainPIN) Verify(pin, stored string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(pin), []byte(stored)) == 1, nil
}

// Argon2PIN stores PINs as argon2id hashes.
type Argon2PIN struct{}

// Hash derives an argon2id hash with the library defaults.
func (Argon2PIN) Hash(pin string) (string, error) {
	return argon2id.CreateHash(pin, argon2id.DefaultParams)
}

// Verify checks the PIN against the stored hash.
func (Argon2PIN) Verify(pin, stored string) (bool, error) {
	return argon2id.ComparePasswordAndHash(pin, stored)
}

// VerifierFor maps a configured scheme name to its verifier.
func VerifierFor(scheme string) (PINVerifier, error) {
	switch scheme {
	case "", "plain":
		return PlainPIN{}, nil
	case "argon2id":
		return Argon2PIN{}, nil
	default:
		return nil, fmt.Errorf("auth: unknown pin scheme %q", scheme)
	}
}
