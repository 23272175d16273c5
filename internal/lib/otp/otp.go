package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	minCode = 100000
	maxCode = 999999
)

// Generator выдаёт одноразовые коды подтверждения и сброса пароля
type Generator interface {
	Generate() (string, error)
}

// Random - 6-значный код, равномерно из [100000, 999999]
type Random struct{}

func (Random) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}
