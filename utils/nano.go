package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	digitAlphabet  = "0123456789"
	objectAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns a new entity id
func NewID() string {
	return uuid.NewString()
}

// PublicComplaintID returns CMP-YYYY-###### with six random digits.
func PublicComplaintID(now time.Time) string {
	return fmt.Sprintf("CMP-%d-%s", now.Year(), gonanoid.MustGenerate(digitAlphabet, 6))
}

// FallbackPublicComplaintID returns CMP-YYYY- followed by six uppercase characters taken
// from a fresh UUID. Used once random digits keep colliding.
func FallbackPublicComplaintID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("CMP-%d-%s", now.Year(), strings.ToUpper(hex[:6]))
}

// ObjectKey builds a collision-resistant storage key under prefix, keeping ext.
func ObjectKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), gonanoid.MustGenerate(objectAlphabet, 21), ext)
}
