package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RedemptionAlphabet omits characters that are easy to misread at the bar
// (0/O, 1/I).
const RedemptionAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const RedemptionCodeLength = 8

// RandomCode draws n characters uniformly from alphabet using crypto/rand.
func RandomCode(alphabet string, n int) (string, error) {
	if n <= 0 || alphabet == "" {
		return "", fmt.Errorf("invalid code length %d", n)
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

func NewRedemptionCode() (string, error) {
	return RandomCode(RedemptionAlphabet, RedemptionCodeLength)
}

// NewResetCode returns a six digit numeric code for password resets.
func NewResetCode() (string, error) {
	return RandomCode("0123456789", 6)
}
