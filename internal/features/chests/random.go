// Package chests — random.go содержит источники случайных чисел.
package chests

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomSource выдаёт равномерные числа из [0,1).
// В тестах подменяется детерминированным источником.
type RandomSource interface {
	Float64() (float64, error)
}

// float64Precision — 2^53, число различимых значений в мантиссе float64.
var float64Precision = big.NewInt(1 << 53)

// CryptoSource — источник на crypto/rand.
type CryptoSource struct{}

// NewCryptoSource создаёт криптостойкий источник для продакшена.
func NewCryptoSource() CryptoSource {
	return CryptoSource{}
}

// Float64 возвращает случайное число из [0,1).
func (CryptoSource) Float64() (float64, error) {
	n, err := rand.Int(rand.Reader, float64Precision)
	if err != nil {
		return 0, fmt.Errorf("crypto/rand: %w", err)
	}
	return float64(n.Int64()) / float64(1<<53), nil
}
