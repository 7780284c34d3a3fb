package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

// activationAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const activationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const ActivationCodeLength = 6

// NewTableSecret returns a URL-safe token carrying 256 bits of entropy.
func NewTableSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewActivationCode returns a 6 character code from activationAlphabet.
func NewActivationCode() (string, error) {
	code := make([]byte, ActivationCodeLength)
	max := big.NewInt(int64(len(activationAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = activationAlphabet[n.Int64()]
	}
	return string(code), nil
}

// TokenPrefix returns a short, log-safe prefix of a table secret.
func TokenPrefix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[:6] + "…"
}
