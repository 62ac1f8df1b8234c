package security

import (
	"crypto/rand"
	"math/big"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hash password hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// helper that compares a bcrypt hash with a plaintext password.

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// CheckDummy pays the cost of a real comparison against a hash no password
// matches, so a missing account takes as long to reject as a wrong password.
// It always returns an error.
func CheckDummy(plain string) error {
	dummyOnce.Do(func() {
		secret, err := GeneratePassword(32)
		if err != nil {
			secret = "accounthub-unmatchable"
		}
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	})

	if err := bcrypt.CompareHashAndPassword(dummyHash, []byte(plain)); err != nil {
		return err
	}
	return bcrypt.ErrMismatchedHashAndPassword
}

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePassword returns a random password of length n drawn from an
// alphabet without look-alike characters.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = 20
	}

	out := make([]byte, n)
	max := big.NewInt(int64(len(passwordAlphabet)))

	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}

	return string(out), nil
}
