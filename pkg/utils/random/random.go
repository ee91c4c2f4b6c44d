package random

import (
	"crypto/rand"
	"math/big"
)

// No 0/O or 1/I.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AccessCode returns a random team access code of the given length.
func AccessCode(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}
