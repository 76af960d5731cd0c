package attest

import (
	"bytes"
	"testing"
)

// tlv builds a single DER tag-length-value using short-form length, which is
// all these tests need (values stay well under 128 bytes).
func tlv(tag byte, value []byte) []byte {
	if len(value) >= 0x80 {
		panic("tlv: short-form length only in tests")
	}
	out := []byte{tag, byte(len(value))}
	return append(out, value...)
}

func TestReadLength_ShortForm(t *testing.T) {
	length, headerLen, ok := readLength([]byte{0x20, 0xFF})
	if !ok || length != 0x20 || headerLen != 1 {
		t.Fatalf("readLength() = (%d, %d, %v), want (32, 1, true)", length, headerLen, ok)
	}
}

func TestReadLength_LongForm(t *testing.T) {
	length, headerLen, ok := readLength([]byte{0x82, 0x01, 0x00, 0xFF})
	if !ok || length != 256 || headerLen != 3 {
		t.Fatalf("readLength() = (%d, %d, %v), want (256, 3, true)", length, headerLen, ok)
	}
}

func TestReadLength_Empty(t *testing.T) {
	if _, _, ok := readLength(nil); ok {
		t.Fatal("readLength(nil) ok = true, want false")
	}
}

func TestWalkForNonce_FindsTopLevelOctetString(t *testing.T) {
	nonce := bytesN(32, 0x42)
	data := tlv(asn1TagOctetString, nonce)

	got := walkForNonce(data, 0)
	if !bytes.Equal(got, nonce) {
		t.Fatalf("walkForNonce() = %x, want %x", got, nonce)
	}
}

func TestWalkForNonce_IgnoresWrongLengthOctetString(t *testing.T) {
	data := tlv(asn1TagOctetString, bytesN(16, 0x42))
	if got := walkForNonce(data, 0); got != nil {
		t.Fatalf("walkForNonce() = %x, want nil for a 16-byte OCTET STRING", got)
	}
}

func TestWalkForNonce_DescendsIntoConstructedSequence(t *testing.T) {
	nonce := bytesN(32, 0x07)
	inner := tlv(asn1TagOctetString, nonce)
	sequence := tlv(0x30, inner) // SEQUENCE, constructed

	got := walkForNonce(sequence, 0)
	if !bytes.Equal(got, nonce) {
		t.Fatalf("walkForNonce() = %x, want %x", got, nonce)
	}
}

func TestWalkForNonce_DescendsIntoNestedPrimitiveOctetString(t *testing.T) {
	nonce := bytesN(32, 0x09)
	inner := tlv(asn1TagOctetString, nonce)
	outer := tlv(asn1TagOctetString, inner) // Apple's actual nesting shape

	got := walkForNonce(outer, 0)
	if !bytes.Equal(got, nonce) {
		t.Fatalf("walkForNonce() = %x, want %x", got, nonce)
	}
}

// wrapDepth nests value inside n constructed SEQUENCE wrappers.
func wrapDepth(value []byte, n int) []byte {
	out := value
	for i := 0; i < n; i++ {
		out = tlv(0x30, out)
	}
	return out
}

func TestWalkForNonce_FindsNonceAtMaxDepth(t *testing.T) {
	nonce := bytesN(32, 0x11)
	data := wrapDepth(tlv(asn1TagOctetString, nonce), maxNonceWalkDepth)

	got := walkForNonce(data, 0)
	if !bytes.Equal(got, nonce) {
		t.Fatalf("walkForNonce() = %x, want %x at the maximum permitted nesting depth", got, nonce)
	}
}

func TestWalkForNonce_GivesUpBeyondMaxDepth(t *testing.T) {
	nonce := bytesN(32, 0x11)
	data := wrapDepth(tlv(asn1TagOctetString, nonce), maxNonceWalkDepth+2)

	if got := walkForNonce(data, 0); got != nil {
		t.Fatalf("walkForNonce() = %x, want nil beyond the maximum permitted nesting depth", got)
	}
}

func TestExtractCertNonce_MissingOID(t *testing.T) {
	if _, err := extractCertNonce([]byte("no oid here")); err != ErrNonceMissing {
		t.Fatalf("extractCertNonce() error = %v, want %v", err, ErrNonceMissing)
	}
}

func TestExtractCertNonce_FindsNonceAfterOID(t *testing.T) {
	nonce := bytesN(32, 0x55)
	wrapped := tlv(asn1TagOctetString, tlv(asn1TagOctetString, nonce))
	der := append(append([]byte{}, appAttestNonceOIDHeader...), wrapped...)

	got, err := extractCertNonce(der)
	if err != nil {
		t.Fatalf("extractCertNonce() error = %v", err)
	}
	if !bytes.Equal(got, nonce) {
		t.Fatalf("extractCertNonce() = %x, want %x", got, nonce)
	}
}
