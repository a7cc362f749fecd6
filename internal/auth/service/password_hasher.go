package service

import (
	"unicode"

	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords one-way and compares in constant time.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePasswordStrength enforces the password policy: minimum length plus
// at least one lowercase letter, one uppercase letter, one digit and one
// symbol.
func ValidatePasswordStrength(password string, minLength int) error {
	if len(password) < minLength {
		return autherror.ErrPasswordPolicyViolated
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return autherror.ErrPasswordPolicyViolated
	}

	return nil
}
