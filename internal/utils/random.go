package utils

import (
	"crypto/rand"
	"math/big"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomBase36 returns n characters drawn uniformly from [0-9a-z] using the
// system CSPRNG.
func RandomBase36(n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range out {
		k, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = base36[k.Int64()]
	}
	return string(out), nil
}
