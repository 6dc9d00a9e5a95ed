package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// PhotoSHA256 returns the hex SHA-256 of the raw uploaded bytes.
//
// The hash is an integrity signal recorded at receipt: it detects later tampering with the
// stored object. It says nothing about who took the photo or when.
func PhotoSHA256(photo []byte) string {
	sum := sha256.Sum256(photo)
	return hex.EncodeToString(sum[:])
}
