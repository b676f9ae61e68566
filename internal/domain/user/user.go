// Package user implements the user store backing authentication: doctors,
// staff, admins and patient portal accounts.
package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// Role gates what a user may do.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// User is an account record. PasswordHash and Salt are never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Specialty    string    `json:"specialty,omitempty"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	pbkdf2Iterations = 210_000
	pbkdf2KeyLength  = 32
)

// HashPassword derives a salted PBKDF2-SHA256 hash, returning hash and salt
// as hex strings.
func HashPassword(password string) (hash, salt string, err error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), raw, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return hex.EncodeToString(key), hex.EncodeToString(raw), nil
}

// CheckPassword verifies a password against a stored hash and salt in
// constant time.
func CheckPassword(password, hash, salt string) bool {
	rawSalt, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), rawSalt, pbkdf2Iterations, pbkdf2KeyLength, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
