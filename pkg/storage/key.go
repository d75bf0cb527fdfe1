package storage

import "encoding/hex"

// SanitizeKey derives a storage-safe key from an arbitrary user identifier.
//
// The function is pure and total: every input string maps to a non-empty key
// that is safe for use as a file name fragment or table key. Alphanumeric
// characters are kept, everything else ("+", "-", spaces, path separators) is
// dropped, so "+1-234-567 8900" and "12345678900" collide by design — both
// denote the same phone number.
//
// Inputs containing no alphanumerics at all hex-encode so they still produce
// a stable, unique key instead of an empty string.
//
// The original identifier is recorded inside the persisted document itself;
// keys are never reversed back into identifiers except as a legacy fallback.
func SanitizeKey(identifier string) string {
	out := make([]byte, 0, len(identifier))
	for i := 0; i < len(identifier); i++ {
		c := identifier[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "x" + hex.EncodeToString([]byte(identifier))
	}
	return string(out)
}
