package attest

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestDecodeAttestationObject_RoundTrip(t *testing.T) {
	want := attestationObject{
		Fmt:      appleAppAttestFmt,
		AttStmt:  attestationStatement{X5C: [][]byte{{0x01}, {0x02}}, Receipt: []byte{0x03}},
		AuthData: []byte{0x04, 0x05},
	}
	raw, err := cbor.Marshal(want)
	if err != nil {
		t.Fatalf("cbor.Marshal() error = %v", err)
	}

	got, err := decodeAttestationObject(raw)
	if err != nil {
		t.Fatalf("decodeAttestationObject() error = %v", err)
	}
	if got.Fmt != want.Fmt || len(got.AttStmt.X5C) != 2 || string(got.AuthData) != string(want.AuthData) {
		t.Fatalf("decodeAttestationObject() = %+v, want %+v", got, want)
	}
}

func TestDecodeAttestationObject_RejectsGarbage(t *testing.T) {
	if _, err := decodeAttestationObject([]byte("not cbor")); err != nil && err.Error() == "" {
		t.Fatal("expected a descriptive error")
	}
	if _, err := decodeAttestationObject([]byte("not cbor")); err == nil {
		t.Fatal("decodeAttestationObject() error = nil, want rejection of non-CBOR input")
	}
}

func TestDecodeAssertionObject_RoundTrip(t *testing.T) {
	want := assertionObject{Signature: []byte{0x01, 0x02}, AuthenticatorData: []byte{0x03}}
	raw, err := cbor.Marshal(want)
	if err != nil {
		t.Fatalf("cbor.Marshal() error = %v", err)
	}

	got, err := decodeAssertionObject(raw)
	if err != nil {
		t.Fatalf("decodeAssertionObject() error = %v", err)
	}
	if string(got.Signature) != string(want.Signature) || string(got.AuthenticatorData) != string(want.AuthenticatorData) {
		t.Fatalf("decodeAssertionObject() = %+v, want %+v", got, want)
	}
}
