package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single configured admin account. The password is
// stored only as a bcrypt hash.
type Credentials struct {
	Email        string
	PasswordHash string
}

// Verify checks an email/password pair against the configured account.
// The email comparison is constant-time and bcrypt always runs, so a
// wrong email costs the same as a wrong password.
func (c Credentials) Verify(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(c.Email)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	return emailOK && passwordOK
}

// HashPassword produces a bcrypt hash for provisioning admin accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
