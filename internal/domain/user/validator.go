package user

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	MinLoginLen    = 3
	MaxLoginLen    = 64
	MinPasswordLen = 10
	// MaxPasswordBytes предел bcrypt, длиннее GenerateFromPassword не принимает
	MaxPasswordBytes = 72
)

var (
	ErrLoginFormat  = errors.New("login format")
	ErrWeakPassword = errors.New("weak password")
)

// Логин становится владельцем записей в очереди клиента,
// поэтому только строчная латиница без пробелов.
var loginPattern = regexp.MustCompile(`^[a-z][a-z0-9._-]*[a-z0-9]$`)

// Validator проверяет учетные данные до обращения к хранилищу
type Validator interface {
	ValidateRegister(login, password string) error
	ValidateLogin(login string) error
}

type CredentialsValidator struct{}

func NewCredentialsValidator() *CredentialsValidator {
	return &CredentialsValidator{}
}

func (v *CredentialsValidator) ValidateRegister(login, password string) error {
	if err := v.ValidateLogin(login); err != nil {
		return err
	}
	return v.ValidatePassword(login, password)
}

// ValidateLogin 3-64 символа: a-z, цифры, '.', '_', '-'; начинается с буквы
func (v *CredentialsValidator) ValidateLogin(login string) error {
	switch {
	case len(login) < MinLoginLen:
		return fmt.Errorf("%w: shorter than %d characters", ErrLoginFormat, MinLoginLen)
	case len(login) > MaxLoginLen:
		return fmt.Errorf("%w: longer than %d characters", ErrLoginFormat, MaxLoginLen)
	case !loginPattern.MatchString(login):
		return fmt.Errorf("%w: use lowercase latin letters, digits, '.', '_' or '-', starting with a letter", ErrLoginFormat)
	case strings.Contains(login, ".."):
		return fmt.Errorf("%w: consecutive dots", ErrLoginFormat)
	}
	return nil
}

func (v *CredentialsValidator) ValidatePassword(login, password string) error {
	if len([]rune(password)) < MinPasswordLen {
		return fmt.Errorf("%w: shorter than %d characters", ErrWeakPassword, MinPasswordLen)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: longer than %d bytes", ErrWeakPassword, MaxPasswordBytes)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: needs at least one letter and one digit", ErrWeakPassword)
	}

	if login != "" && strings.Contains(strings.ToLower(password), login) {
		return fmt.Errorf("%w: contains the login", ErrWeakPassword)
	}

	return nil
}
