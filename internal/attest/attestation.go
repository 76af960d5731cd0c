// Package attest implements the Apple App Attest attestation and assertion
// verifiers: CBOR decoding, X.509 chain validation against a pinned root,
// ASN.1 nonce extraction, credentialId derivation, and ECDSA signature
// verification.
package attest

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/dc4eu/vc-attest/pkg/model"
	"github.com/dc4eu/vc-attest/pkg/trace"

	"go.opentelemetry.io/otel/codes"
)

const appleAppAttestFmt = "apple-appattest"

// DeviceStore is the subset of the device store contract this package
// depends on: persisting a freshly verified attestation and looking up a
// device's public key and counter for assertion verification.
type DeviceStore interface {
	Put(ctx context.Context, record *model.DeviceRecord) error
	Get(ctx context.Context, credentialID string) (*model.DeviceRecord, error)
	Update(ctx context.Context, credentialID string, patch func(*model.DeviceRecord) error) error
}

// Verifier verifies Apple App Attest attestations and assertions against a
// device store.
type Verifier struct {
	store  DeviceStore
	tracer *trace.Tracer
	cfg    model.Attest
}

// New returns a Verifier backed by store.
func New(store DeviceStore, tracer *trace.Tracer, cfg model.Attest) *Verifier {
	return &Verifier{store: store, tracer: tracer, cfg: cfg}
}

// VerifyAttestation runs the full App Attest attestation pipeline described
// in SPEC_FULL.md §4.1 and, on success, persists a new DeviceRecord with
// counter 0. Returns the DER-encoded SubjectPublicKeyInfo of the attested
// key.
func (v *Verifier) VerifyAttestation(ctx context.Context, attestationBytes, challengeBytes []byte, expectedCredentialIDB64 string) ([]byte, error) {
	ctx, span := v.tracer.Start(ctx, "attest:VerifyAttestation")
	defer span.End()

	obj, err := decodeAttestationObject(attestationBytes)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if obj.Fmt != appleAppAttestFmt {
		err := fmt.Errorf("%w: fmt %q", ErrBadFormat, obj.Fmt)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	leaf, err := verifyChain(obj.AttStmt.X5C)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	spkiDER, err := leafSPKIDER(leaf)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	point, err := uncompressedPoint(spkiDER)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	authData, err := parseAuthData(obj.AuthData)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !authData.Flags.hasAttestedCredentialData() {
		span.SetStatus(codes.Error, ErrAtFlagUnset.Error())
		return nil, ErrAtFlagUnset
	}

	credentialID := sha256.Sum256(point)
	if expectedCredentialIDB64 != "" && stdBase64Encode(credentialID[:]) != expectedCredentialIDB64 {
		span.SetStatus(codes.Error, ErrCredentialIDMismatch.Error())
		return nil, ErrCredentialIDMismatch
	}
	if !bytesEqual(authData.CredentialID, credentialID[:]) {
		span.SetStatus(codes.Error, ErrCredentialIDMismatch.Error())
		return nil, ErrCredentialIDMismatch
	}

	certNonce, err := extractCertNonce(leaf.Raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := v.verifyNonce(obj.AuthData, challengeBytes, certNonce); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record := &model.DeviceRecord{
		CredentialID: stdBase64Encode(credentialID[:]),
		PublicKeyDER: spkiDER,
		Counter:      0,
	}
	if err := v.store.Put(ctx, record); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return spkiDER, nil
}

// verifyNonce accepts the Apple-spec nonce variant
// SHA-256(authData‖SHA-256(challenge)), and, when AcceptLegacyNonceVariant
// is set, the legacy variant SHA-256(authData‖challenge) too.
func (v *Verifier) verifyNonce(authData, challenge, certNonce []byte) error {
	challengeHash := sha256.Sum256(challenge)
	specExpected := sha256.Sum256(append(append([]byte{}, authData...), challengeHash[:]...))
	if bytesEqual(specExpected[:], certNonce) {
		return nil
	}

	if v.cfg.AcceptLegacyNonceVariant {
		legacyExpected := sha256.Sum256(append(append([]byte{}, authData...), challenge...))
		if bytesEqual(legacyExpected[:], certNonce) {
			return nil
		}
	}

	return ErrNonceMismatch
}

// leafSPKIDER returns the leaf certificate's subject public key re-encoded
// as DER SubjectPublicKeyInfo.
func leafSPKIDER(leaf *x509.Certificate) ([]byte, error) {
	pub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: leaf public key is not P-256", ErrBadPointFormat)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPointFormat, err)
	}
	return der, nil
}

// uncompressedPoint returns the trailing 65-byte uncompressed EC point
// embedded in a DER SPKI blob, requiring the leading byte to be 0x04.
func uncompressedPoint(spkiDER []byte) ([]byte, error) {
	if len(spkiDER) < 65 {
		return nil, fmt.Errorf("%w: SPKI shorter than EC point", ErrBadPointFormat)
	}
	point := spkiDER[len(spkiDER)-65:]
	if point[0] != 0x04 {
		return nil, ErrBadPointFormat
	}
	return point, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// canonicalPayload serialises {passportHash, evmAddress} per SPEC_FULL.md
// §4.2 step 4: no whitespace, keys in insertion order, ASCII-only values.
func canonicalPayload(passportHash, evmAddress string) []byte {
	// encoding/json.Marshal on a struct preserves field declaration order
	// and emits no extraneous whitespace, matching the documented wire
	// form byte-for-byte.
	type payload struct {
		PassportHash string `json:"passportHash"`
		EVMAddress   string `json:"evmAddress"`
	}
	b, _ := json.Marshal(payload{PassportHash: passportHash, EVMAddress: evmAddress})
	return b
}
