package attest

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// decMode is the shared CBOR decode configuration for App Attest envelopes:
// duplicate map keys are rejected and indefinite-length items are accepted,
// since Apple's own encoder emits them for some attestation statements.
var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	opts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	mode, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("attest: invalid cbor decode options: %v", err))
	}
	return mode
}

// attestationStatement is the `attStmt` map of an App Attest attestation
// object.
type attestationStatement struct {
	X5C     [][]byte `cbor:"x5c"`
	Receipt []byte   `cbor:"receipt"`
}

// attestationObject is the top-level CBOR map Apple returns from
// DCAppAttestService.attestKey.
type attestationObject struct {
	Fmt      string                `cbor:"fmt"`
	AttStmt  attestationStatement  `cbor:"attStmt"`
	AuthData []byte                `cbor:"authData"`
}

// assertionObject is the top-level CBOR map Apple returns from
// DCAppAttestService.generateAssertion.
type assertionObject struct {
	Signature         []byte `cbor:"signature"`
	AuthenticatorData []byte `cbor:"authenticatorData"`
}

func decodeAttestationObject(raw []byte) (*attestationObject, error) {
	var obj attestationObject
	if err := decMode.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return &obj, nil
}

func decodeAssertionObject(raw []byte) (*assertionObject, error) {
	var obj assertionObject
	if err := decMode.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return &obj, nil
}
