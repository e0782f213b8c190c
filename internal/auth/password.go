package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcnijman/go-emailaddress"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadewadee/safety-observer/internal/domain"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidLogin     = errors.New("observer id does not form a valid login")
)

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateNewPassword checks a password change
func ValidateNewPassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// LoginEmail turns an observer id into the email used to sign in.
// Values that already contain @ are validated and returned lower-cased.
func LoginEmail(observerID string) (string, error) {
	login := strings.ToLower(strings.TrimSpace(observerID))
	if login == "" {
		return "", ErrInvalidLogin
	}
	if !strings.Contains(login, "@") {
		login = login + "@" + domain.LoginEmailDomain
	}

	email, err := emailaddress.Parse(login)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidLogin, observerID)
	}

	return email.String(), nil
}
