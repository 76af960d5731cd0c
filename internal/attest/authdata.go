package attest

import (
	"encoding/binary"
	"fmt"
)

const minAuthDataLength = 37

// authenticatorFlags is the single flags byte at offset 32 of authData.
type authenticatorFlags byte

const flagAttestedCredentialData authenticatorFlags = 1 << 6

func (f authenticatorFlags) hasAttestedCredentialData() bool {
	return f&flagAttestedCredentialData == flagAttestedCredentialData
}

// authenticatorData is the decoded fixed-layout byte blob described in
// SPEC_FULL.md §3: rpIdHash ‖ flags ‖ counter ‖ [attestedCredentialData].
type authenticatorData struct {
	RPIDHash     []byte
	Flags        authenticatorFlags
	Counter      uint32
	AAGUID       []byte
	CredentialID []byte
}

// parseAuthData decodes rawAuthData per the WebAuthn/App-Attest byte
// layout. Attested credential data (AAGUID + credentialId) is only present
// on attestation, never on assertion; its presence is driven by the AT flag
// and the blob's remaining length, not assumed from context.
func parseAuthData(raw []byte) (*authenticatorData, error) {
	if len(raw) < minAuthDataLength {
		return nil, fmt.Errorf("%w: authData shorter than %d bytes", ErrBadFormat, minAuthDataLength)
	}

	a := &authenticatorData{
		RPIDHash: raw[:32],
		Flags:    authenticatorFlags(raw[32]),
		Counter:  binary.BigEndian.Uint32(raw[33:37]),
	}

	if !a.Flags.hasAttestedCredentialData() {
		return a, nil
	}

	if len(raw) < 55 {
		return nil, fmt.Errorf("%w: attested credential data truncated before length field", ErrBadFormat)
	}

	a.AAGUID = raw[37:53]
	credIDLen := int(binary.BigEndian.Uint16(raw[53:55]))
	if credIDLen < 0 || 55+credIDLen > len(raw) {
		return nil, fmt.Errorf("%w: credentialIdLen %d reads past authData end", ErrBadFormat, credIDLen)
	}
	a.CredentialID = raw[55 : 55+credIDLen]

	return a, nil
}
