package classroom

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O, 1/I
)

var (
	defaultRandReader io.Reader = rand.Reader
	randReader                  = defaultRandReader
)

// GenerateClassCode returns a random code of 6 unambiguous upper case characters.
func GenerateClassCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(randReader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeClassCode upper cases a user provided code and drops its spaces.
func NormalizeClassCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}
