package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const OTPDigits = 6

// GenerateOTP returns a uniformly random six-digit code, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
