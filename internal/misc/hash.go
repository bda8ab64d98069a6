package misc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SumSHA256 returns the hex SHA-256 of value followed by key. It is the value
// carried in the HashSHA256 header.
func SumSHA256(value []byte, key string) string {
	h := sha256.New()
	h.Write(value)
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySHA256 reports whether got matches SumSHA256(value, key), in constant time.
func VerifySHA256(value []byte, key, got string) bool {
	want := SumSHA256(value, key)
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
