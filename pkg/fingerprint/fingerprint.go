package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// delimiter keeps field concatenation unambiguous ("ab"+"c" vs "a"+"bc").
const delimiter = "|"

// Image digests normalized image bytes. Used as the global dedup key for
// submitted photos.
func Image(normalized []byte) string {
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}

// Receipt digests the extracted (store, date, total) triple. Callers only
// compute this when all three fields are present; the digest is scoped per
// user by the ledger, not here.
func Receipt(storeName, receiptDate, totalAmount string) string {
	joined := strings.Join([]string{storeName, receiptDate, totalAmount}, delimiter)
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}
