package passhash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// SchemeSHA256 - один проход SHA-256 без соли, hex. Совместим с уже сохранёнными хэшами.
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Hasher хэширует пароль и сверяет его с сохранённым хэшем
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// New возвращает Hasher для схемы из конфига
func New(scheme string) (Hasher, error) {
	switch scheme {
	case "", SchemeSHA256:
		return SHA256{}, nil
	case SchemeBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

type SHA256 struct{}

func (SHA256) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (s SHA256) Compare(hash, password string) bool {
	got, _ := s.Hash(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

// Bcrypt - схема с солью, включается через auth.password_scheme.
// Хэши SHA256 с ней несовместимы.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
