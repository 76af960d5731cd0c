package attest

import "github.com/dc4eu/vc-attest/pkg/apierror"

// Re-exported so the rest of this package can refer to them unqualified.
// Most are returned wrapped with fmt.Errorf("%w: ..."), so the HTTP boundary
// recovers the *apierror.Error with errors.As (apierror.NewErrorFromError).
var (
	ErrBadFormat            = apierror.ErrBadFormat
	ErrChainTooShort        = apierror.ErrChainTooShort
	ErrCertChain            = apierror.ErrCertChain
	ErrBadPointFormat       = apierror.ErrBadPointFormat
	ErrAtFlagUnset          = apierror.ErrAtFlagUnset
	ErrCredentialIDMismatch = apierror.ErrCredentialIDMismatch
	ErrNonceMissing         = apierror.ErrNonceMissing
	ErrNonceMismatch        = apierror.ErrNonceMismatch
	ErrReplay               = apierror.ErrReplay
	ErrBadSignature         = apierror.ErrBadSignature
	ErrDeviceUnknown        = apierror.ErrDeviceUnknown
)
