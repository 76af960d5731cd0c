package attest

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dc4eu/vc-attest/pkg/model"

	"go.opentelemetry.io/otel/codes"
)

// VerifyAssertion runs the App Attest assertion pipeline described in
// SPEC_FULL.md §4.2: replay-checks the counter, verifies the ECDSA
// signature over the canonical {passportHash, evmAddress} payload, and, on
// success, atomically advances the stored counter and binds the identity
// fields.
func (v *Verifier) VerifyAssertion(ctx context.Context, assertionBytes []byte, credentialID, passportHash, evmAddress string) error {
	ctx, span := v.tracer.Start(ctx, "attest:VerifyAssertion")
	defer span.End()

	record, err := v.store.Get(ctx, credentialID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if record == nil {
		span.SetStatus(codes.Error, ErrDeviceUnknown.Error())
		return ErrDeviceUnknown
	}

	obj, err := decodeAssertionObject(assertionBytes)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if len(obj.AuthenticatorData) < 37 {
		err := fmt.Errorf("%w: authenticatorData shorter than 37 bytes", ErrBadFormat)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	counter := binary.BigEndian.Uint32(obj.AuthenticatorData[33:37])

	payload := canonicalPayload(passportHash, evmAddress)
	clientDataHash := sha256.Sum256(payload)
	message := sha256.Sum256(append(append([]byte{}, obj.AuthenticatorData...), clientDataHash[:]...))

	pub, err := x509.ParsePKIXPublicKey(record.PublicKeyDER)
	if err != nil {
		err = fmt.Errorf("%w: stored public key: %v", ErrBadSignature, err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		err := fmt.Errorf("%w: stored public key is not ECDSA", ErrBadSignature)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if !ecdsa.VerifyASN1(ecPub, message[:], obj.Signature) {
		span.SetStatus(codes.Error, ErrBadSignature.Error())
		return ErrBadSignature
	}

	// The replay decision is made here, inside patch, not against the
	// record fetched above: patch runs under the store's row lock / file
	// mutex, so this is the only point at which "counter > stored counter"
	// and "write counter" are atomic. Deciding against the pre-lock record
	// would let two concurrent calls both pass the check and both commit.
	lowerAddress := strings.ToLower(evmAddress)
	err = v.store.Update(ctx, credentialID, func(r *model.DeviceRecord) error {
		if counter <= r.Counter {
			return ErrReplay
		}
		r.Counter = counter
		r.EVMAddress = lowerAddress
		r.PassportHash = passportHash
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
