package httpserver

import (
	"context"
	"encoding/json"

	"github.com/dc4eu/vc-attest/internal/apiv1"
	"github.com/dc4eu/vc-attest/pkg/apierror"

	"github.com/gin-gonic/gin"
)

func bindJSON(c *gin.Context, v any) error {
	if err := json.NewDecoder(c.Request.Body).Decode(v); err != nil {
		return apierror.NewErrorFromError(err)
	}
	if err := validate.Struct(v); err != nil {
		return apierror.NewErrorFromError(err)
	}
	return nil
}

func (s *Service) endpointVerifyAttestation(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.VerifyAttestationRequest{}
	if err := bindJSON(c, req); err != nil {
		return nil, err
	}
	return s.api.VerifyAttestation(ctx, req)
}

func (s *Service) endpointVerifyAssertion(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.VerifyAssertionRequest{}
	if err := bindJSON(c, req); err != nil {
		return nil, err
	}
	return s.api.VerifyAssertion(ctx, req)
}

func (s *Service) endpointIdentity(ctx context.Context, c *gin.Context) (any, error) {
	address := c.Query("address")
	if address == "" {
		return nil, apierror.NewErrorDetails("ErrBadFormat", "missing address query parameter")
	}
	return s.api.Identity(ctx, address)
}

func (s *Service) endpointPrimusInit(ctx context.Context, c *gin.Context) (any, error) {
	return s.api.PrimusInit(ctx)
}

func (s *Service) endpointPrimusSign(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.PrimusSignRequest{}
	if err := bindJSON(c, req); err != nil {
		return nil, err
	}
	return s.api.PrimusSign(ctx, req)
}

func (s *Service) endpointPrimusVerify(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.PrimusVerifyRequest{}
	if err := bindJSON(c, req); err != nil {
		return nil, err
	}
	return s.api.PrimusVerify(ctx, req)
}

func (s *Service) endpointHealth(ctx context.Context, c *gin.Context) (any, error) {
	return s.api.Health(ctx)
}
