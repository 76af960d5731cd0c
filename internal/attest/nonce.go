package attest

import (
	"bytes"
)

// appAttestNonceOIDHeader is the DER encoding of the tag+length+value for
// OID 1.2.840.113635.100.8.2 (Apple's App Attest nonce extension), used as a
// literal byte needle rather than parsed as a structured extension — the
// surrounding container has historically varied between Apple OS releases.
var appAttestNonceOIDHeader = []byte{0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x63, 0x64, 0x08, 0x02}

const (
	asn1TagOctetString = 0x04
	maxNonceWalkDepth  = 10
)

// extractCertNonce scans leafDER for the App Attest nonce OID, then walks
// the ASN.1 TLV structure that follows it (recursion capped at
// maxNonceWalkDepth) looking for the first OCTET STRING whose value is
// exactly 32 bytes.
func extractCertNonce(leafDER []byte) ([]byte, error) {
	idx := bytes.Index(leafDER, appAttestNonceOIDHeader)
	if idx < 0 {
		return nil, ErrNonceMissing
	}

	rest := leafDER[idx+len(appAttestNonceOIDHeader):]
	nonce := walkForNonce(rest, 0)
	if nonce == nil {
		return nil, ErrNonceMissing
	}
	return nonce, nil
}

// walkForNonce recursively scans a DER TLV stream for the first 32-byte
// OCTET STRING, descending into constructed values. Returns nil if none is
// found within depth or before the stream runs out.
func walkForNonce(data []byte, depth int) []byte {
	if depth > maxNonceWalkDepth {
		return nil
	}

	for len(data) > 0 {
		tag := data[0]
		length, headerLen, ok := readLength(data[1:])
		if !ok {
			return nil
		}
		valueStart := 1 + headerLen
		if valueStart+length > len(data) {
			return nil
		}
		value := data[valueStart : valueStart+length]

		if tag == asn1TagOctetString && len(value) == 32 {
			return value
		}

		constructed := tag&0x20 != 0
		if constructed {
			if found := walkForNonce(value, depth+1); found != nil {
				return found
			}
		} else if tag == asn1TagOctetString {
			// A primitive OCTET STRING can itself carry a nested TLV (Apple
			// wraps the nonce extension's OCTET STRING inside another).
			if found := walkForNonce(value, depth+1); found != nil {
				return found
			}
		}

		data = data[valueStart+length:]
	}

	return nil
}

// readLength parses a DER length field (short or long form) from the start
// of data, returning the decoded length, the number of bytes the length
// field itself occupied, and whether parsing succeeded.
func readLength(data []byte) (length, headerLen int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	first := data[0]
	if first&0x80 == 0 {
		return int(first), 1, true
	}

	numBytes := int(first & 0x7f)
	if numBytes == 0 || numBytes > 4 || len(data) < 1+numBytes {
		return 0, 0, false
	}

	length = 0
	for i := 0; i < numBytes; i++ {
		length = length<<8 | int(data[1+i])
	}
	return length, 1 + numBytes, true
}
