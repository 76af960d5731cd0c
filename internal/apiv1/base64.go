package apiv1

import (
	"encoding/base64"
	"fmt"

	"github.com/dc4eu/vc-attest/pkg/apierror"
)

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierror.ErrBadFormat, err)
	}
	return b, nil
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
