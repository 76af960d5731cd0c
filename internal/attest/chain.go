package attest

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

// appleAppAttestationRootCAPEM is Apple's published App Attestation Root CA,
// https://www.apple.com/certificateauthority/Apple_App_Attestation_Root_CA.pem,
// pinned as a compile-time constant per SPEC_FULL.md §4.1.
const appleAppAttestationRootCAPEM = `-----BEGIN CERTIFICATE-----
MIICITCCAaegAwIBAgIQC/O+DvHN0uD7jG5yH2IXmDAKBggqhkjOPQQDAzBSMSYw
JAYDVQQDDB1BcHBsZSBBcHAgQXR0ZXN0YXRpb24gUm9vdCBDQTETMBEGA1UEChMK
QXBwbGUgSW5jLjETMBEGA1UECBMKQ2FsaWZvcm5pYTAeFw0yMDAzMTgxODMyNTNa
Fw00NTAzMTUwMDAwMDBaMFIxJjAkBgNVBAMMHUFwcGxlIEFwcCBBdHRlc3RhdGlv
biBSb290IENBMRMwEQYDVQQKEwpBcHBsZSBJbmMuMRMwEQYDVQQIEwpDYWxpZm9y
bmlhMHYwEAYHKoZIzj0CAQYFK4EEACIDYgAERTHhmLW07ATaFQIEVwTtT4dyctdh
NbJhFs/Ii2FdCgAHGbpphY3+d8qjuDngIN3WVhQUBHAoMeQ/cLiP1sOUtgjqK9au
Yen1mMEvRq9Sk3Jm5X8U62H+xTD3FE9TgSQjo0IwQDAPBgNVHRMBAf8EBTADAQH/
MB0GA1UdDgQWBBSskRBTM72+aEH/pwyp5frq5eWKoTAOBgNVHQ8BAf8EBAMCAQYw
CgYIKoZIzj0EAwMDaQAwZgIxAI7QwkQ1OxTl8ZqdJHVZj1sJvoCpRQbcN6x0ulC8
jSzpNYLSWkcQXChMe5y3uoLE5QIxAL4M0vfuBGBPzqrTY1skmX5uRDhmTt+DryFl
wL3wIZQeQ9uF8olUbfBvtqxF9qgeKg==
-----END CERTIFICATE-----`

var appleAppAttestationRootCA = mustParseRoot(appleAppAttestationRootCAPEM)

func mustParseRoot(pemText string) *x509.Certificate {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		panic("attest: failed to decode pinned root PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		panic(fmt.Sprintf("attest: failed to parse pinned root: %v", err))
	}
	return cert
}

// verifyChain validates x5c (leaf first) against the pinned Apple root: the
// intermediate must be signed by the root, and the leaf must be signed by
// the intermediate. Only signature and per-certificate validity-period
// checks are performed per SPEC_FULL.md §4.1 — no revocation checking.
// Extra trailing certificates beyond leaf/intermediate are ignored; the
// chain is accepted once leaf↔intermediate↔root verifies.
func verifyChain(x5c [][]byte) (*x509.Certificate, error) {
	if len(x5c) < 2 {
		return nil, ErrChainTooShort
	}

	certs := make([]*x509.Certificate, len(x5c))
	for i, der := range x5c {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing x5c[%d]: %v", ErrCertChain, i, err)
		}
		certs[i] = cert
	}

	leaf, intermediate := certs[0], certs[1]

	now := time.Now()
	for i, cert := range []*x509.Certificate{leaf, intermediate} {
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			return nil, fmt.Errorf("%w: x5c[%d] outside validity window", ErrCertChain, i)
		}
	}

	if err := intermediate.CheckSignatureFrom(appleAppAttestationRootCA); err != nil {
		return nil, fmt.Errorf("%w: intermediate not signed by pinned root: %v", ErrCertChain, err)
	}
	if err := leaf.CheckSignatureFrom(intermediate); err != nil {
		return nil, fmt.Errorf("%w: leaf not signed by intermediate: %v", ErrCertChain, err)
	}

	return leaf, nil
}
