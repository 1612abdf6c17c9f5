package security

import "golang.org/x/crypto/bcrypt"

// passwordCost is the bcrypt work factor applied to stored credentials.
const passwordCost = 12

// HashPassword derives a bcrypt hash suitable for storing a credential at rest.
func HashPassword(plain string) (string, error) {
	hashed, errHash := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if errHash != nil {
		return "", errHash
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
