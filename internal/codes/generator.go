package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// MinCodeLength is the shortest code length accepted by NewCode.
	MinCodeLength = 4
	// MaxCodeLength is the longest code length accepted by NewCode.
	MaxCodeLength = 10
)

var (
	ErrInvalidCodeLength = errors.New("invalid code length")
	ErrRandomSource      = errors.New("random source failure")
)

// GenerateFunc produces a numeric code of the requested length.
type GenerateFunc func(length int) (string, error)

// NewCode returns length decimal digits, each drawn independently and
// uniformly from crypto/rand.
func NewCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", ErrInvalidCodeLength
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRandomSource, err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
