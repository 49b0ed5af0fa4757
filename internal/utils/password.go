package utils

import "golang.org/x/crypto/bcrypt"

// BcryptHasher hashes passwords with a fixed bcrypt cost. Each hash carries
// its own random salt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

// Hash returns the bcrypt hash of plain.
func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare safely compares a bcrypt hash with a plain password.
func (h BcryptHasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
