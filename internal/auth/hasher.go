// Package auth implements credential hashing, bearer token issuance and
// validation, and identity resolution for the three trust tiers.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a salted bcrypt digest of the plaintext. Output
// differs across calls for the same input.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plain matches the stored digest. A
// malformed digest verifies false rather than erroring.
func VerifyPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
