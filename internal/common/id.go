package common

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// DocumentID derives the stable identifier of a document from its
// bytes: the first 16 hex digits of the content hash. Re-uploading the
// same file yields the same id.
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// RequestID returns a correlation id for one HTTP request.
func RequestID() string {
	return uuid.NewString()
}
