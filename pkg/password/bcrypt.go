package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength longitud mínima aceptada para contraseñas locales.
	MinLength = 8
	// MaxLength bcrypt solo usa los primeros 72 bytes y rechaza entradas más largas.
	MaxLength = 72
)

var (
	ErrTooShort = errors.New("password: demasiado corta")
	ErrTooLong  = errors.New("password: supera 72 bytes")
)

// Hash genera el hash bcrypt de la contraseña.
func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", ErrTooShort
	}
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(h), nil
}

// Verify compara la contraseña con el hash. Un hash vacío nunca coincide.
func Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
