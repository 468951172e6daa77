package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService uses bcrypt.MinCost; cost 10 would make every
// hashing test several times slower without changing the logic under test.
func newTestPasswordService(t *testing.T) *PasswordService {
	t.Helper()
	ps, err := NewPasswordService(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordService: %v", err)
	}
	return ps
}

func TestNewPasswordService_Cost(t *testing.T) {
	ps, err := NewPasswordService(0)
	if err != nil {
		t.Fatalf("NewPasswordService(0) error = %v", err)
	}
	if ps.Cost() != 10 {
		t.Errorf("default cost = %d, want 10", ps.Cost())
	}

	for _, bad := range []int{1, 3, 32} {
		if _, err := NewPasswordService(bad); err == nil {
			t.Errorf("NewPasswordService(%d) should fail", bad)
		}
	}
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService(t)

	hash, err := ps.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Errorf("Hash() = %q, want $2a$04$ prefix", hash)
	}
	if strings.Contains(hash, "hunter2") {
		t.Error("Hash() output contains the plaintext")
	}
}

func TestHash_Salted(t *testing.T) {
	ps := newTestPasswordService(t)

	h1, _ := ps.Hash("same")
	h2, _ := ps.Hash("same")
	if h1 == h2 {
		t.Error("two hashes of the same password are identical; salt missing")
	}
}

func TestHash_Length(t *testing.T) {
	ps := newTestPasswordService(t)

	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Errorf("Hash(72 bytes) error = %v", err)
	}
	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(73 bytes) error = %v, want ErrPasswordTooLong", err)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService(t)
	hash, err := ps.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		password  string
		wantErr   bool
		wantMatch bool // when wantErr: is it specifically ErrMismatch?
	}{
		{name: "correct", hash: hash, password: "correct horse"},
		{name: "wrong", hash: hash, password: "battery staple", wantErr: true, wantMatch: true},
		{name: "empty", hash: hash, password: "", wantErr: true, wantMatch: true},
		{name: "garbage hash", hash: "not-a-hash", password: "x", wantErr: true},
		{name: "over 72 bytes", hash: hash, password: strings.Repeat("a", MaxPasswordBytes+1), wantErr: true, wantMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && errors.Is(err, ErrMismatch) != tt.wantMatch {
				t.Errorf("errors.Is(err, ErrMismatch) = %v, want %v", !tt.wantMatch, tt.wantMatch)
			}
		})
	}
}

func TestVerify_HashFromOtherCost(t *testing.T) {
	// Accounts hashed at cost 10 must keep working after a cost change.
	stored, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	ps := newTestPasswordService(t)
	if err := ps.Verify(string(stored), "pw"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
