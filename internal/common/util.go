package common

import (
	"crypto/rand"
	"math/big"
)

// RandomDigits returns n random decimal digits, suitable for one-time codes.
func RandomDigits(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// WipeByteArray zeroes b in place. Use it on passwords once they are sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
