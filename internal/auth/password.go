// Package auth provides credential hashing and optional login sessions.
//
// WHY BCRYPT?
// bcrypt is a slow, salted one-way hash built for passwords. It generates a
// random salt per call and embeds it (with the cost) in its output, so one
// column holds everything Verify needs:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 rounds → 2^10 iterations)
//	 version
//
// Cost 10 is bcrypt's own conventional default (bcrypt.DefaultCost) and what
// existing accounts were hashed with. Verify reads the cost out of the stored
// hash, so raising BCRYPT_COST later only affects new registrations.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit. Longer input is rejected, never truncated.
const MaxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")
	// ErrMismatch is returned by Verify when the password is wrong.
	ErrMismatch = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected: production
// reads BCRYPT_COST, tests use bcrypt.MinCost to stay fast.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a service hashing at cost. Zero means bcrypt.DefaultCost.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordService{cost: cost}, nil
}

// Cost reports the work factor new hashes are created with.
func (p *PasswordService) Cost() int { return p.cost }

// Hash returns the self-contained bcrypt string to store.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrMismatch when it does not.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword re-derives the hash and compares with
// crypto/subtle, so response time does not reveal how close a guess was.
//
// A plaintext over MaxPasswordBytes can never have been hashed by Hash, so it
// is a mismatch, not a problem with the stored hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if len(plaintext) > MaxPasswordBytes {
		return ErrMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return ErrMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
