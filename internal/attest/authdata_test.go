package attest

import (
	"encoding/binary"
	"testing"
)

func buildAuthData(t *testing.T, withAttestedData bool, credentialID []byte) []byte {
	t.Helper()

	buf := make([]byte, 37)
	copy(buf[0:32], bytesN(32, 0xAA))
	if withAttestedData {
		buf[32] = byte(flagAttestedCredentialData)
	}
	binary.BigEndian.PutUint32(buf[33:37], 0)

	if !withAttestedData {
		return buf
	}

	aaguid := bytesN(16, 0xBB)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, uint16(len(credentialID)))

	buf = append(buf, aaguid...)
	buf = append(buf, lenBytes...)
	buf = append(buf, credentialID...)
	buf = append(buf, bytesN(77, 0xCC)...) // CBOR-encoded public key stand-in
	return buf
}

func bytesN(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestParseAuthData_Assertion(t *testing.T) {
	raw := buildAuthData(t, false, nil)
	data, err := parseAuthData(raw)
	if err != nil {
		t.Fatalf("parseAuthData() error = %v", err)
	}
	if data.Flags.hasAttestedCredentialData() {
		t.Error("expected AT flag unset on an assertion authData")
	}
	if data.CredentialID != nil {
		t.Error("expected no credentialId on an assertion authData")
	}
}

func TestParseAuthData_Attestation(t *testing.T) {
	credID := bytesN(32, 0x01)
	raw := buildAuthData(t, true, credID)
	data, err := parseAuthData(raw)
	if err != nil {
		t.Fatalf("parseAuthData() error = %v", err)
	}
	if !data.Flags.hasAttestedCredentialData() {
		t.Error("expected AT flag set")
	}
	if string(data.CredentialID) != string(credID) {
		t.Errorf("CredentialID = %x, want %x", data.CredentialID, credID)
	}
}

func TestParseAuthData_TooShort(t *testing.T) {
	if _, err := parseAuthData(bytesN(10, 0)); err == nil {
		t.Fatal("expected error for too-short authData")
	}
}

func TestParseAuthData_CredentialIDLenReadsPastEnd(t *testing.T) {
	raw := buildAuthData(t, false, nil)
	raw[32] = byte(flagAttestedCredentialData)
	raw = append(raw, bytesN(16, 0xBB)...) // aaguid
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, 0xFFFF) // absurd length
	raw = append(raw, lenBytes...)

	if _, err := parseAuthData(raw); err == nil {
		t.Fatal("expected error when credentialIdLen reads past authData end")
	}
}
