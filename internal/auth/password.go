package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// AdminHash returns the bcrypt hash admins log in against: the configured
// hash when present, else a hash of the configured plain password.
func AdminHash(hash, plain string, cost int) (string, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return "", errors.New("ADMIN_PASS_HASH is not a bcrypt hash")
		}
		return hash, nil
	}
	if plain == "" {
		return "", nil
	}
	return HashPassword(plain, cost)
}
