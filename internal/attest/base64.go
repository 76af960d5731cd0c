package attest

import "encoding/base64"

// stdBase64Encode encodes b as standard (not URL-safe) base64, matching the
// wire convention documented in SPEC_FULL.md §6 for fields not suffixed
// …Hex or …B64Url.
func stdBase64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// stdBase64Decode decodes standard base64 text.
func stdBase64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
