// Package apiv1 holds the request/response DTOs and the façade that calls
// straight into the attestation, store and broker packages on behalf of the
// HTTP boundary.
package apiv1

import (
	"context"

	"github.com/dc4eu/vc-attest/internal/attest"
	"github.com/dc4eu/vc-attest/internal/broker"
	"github.com/dc4eu/vc-attest/internal/store"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/trace"

	"go.opentelemetry.io/otel/codes"
)

const otelError = codes.Error

// Client is the apiv1 façade wired into the HTTP boundary.
type Client struct {
	attest *attest.Verifier
	store  store.Store
	broker *broker.Client
	tracer *trace.Tracer
	log    *logger.Log
}

// New returns a Client wired to its collaborators.
func New(attestVerifier *attest.Verifier, deviceStore store.Store, brokerClient *broker.Client, tracer *trace.Tracer, log *logger.Log) *Client {
	return &Client{
		attest: attestVerifier,
		store:  deviceStore,
		broker: brokerClient,
		tracer: tracer,
		log:    log,
	}
}

// VerifyAttestationRequest is the POST /attest/verify-attestation body.
type VerifyAttestationRequest struct {
	Attestation string `json:"attestation" validate:"required"`
	Challenge   string `json:"challenge" validate:"required"`
	KeyID       string `json:"keyId"`
}

// VerifyAttestationReply is the POST /attest/verify-attestation success body.
type VerifyAttestationReply struct {
	Success   bool   `json:"success"`
	PublicKey string `json:"publicKey"`
}

// VerifyAssertionRequest is the POST /attest/verify-assertion body.
type VerifyAssertionRequest struct {
	Assertion    string `json:"assertion" validate:"required"`
	KeyID        string `json:"keyId" validate:"required"`
	PassportHash string `json:"passportHash" validate:"required"`
	EVMAddress   string `json:"evmAddress" validate:"required"`
}

// VerifyAssertionReply is the POST /attest/verify-assertion success body.
type VerifyAssertionReply struct {
	Success      bool   `json:"success"`
	EVMAddress   string `json:"evmAddress"`
	PassportHash string `json:"passportHash"`
}

// PrimusSignRequest is the POST /primus/sign body.
type PrimusSignRequest struct {
	TemplateID  string `json:"templateId" validate:"required"`
	UserAddress string `json:"userAddress" validate:"required"`
}

// PrimusSignReply is the POST /primus/sign success body.
type PrimusSignReply struct {
	Success         bool   `json:"success"`
	SignedRequestStr string `json:"signedRequestStr"`
}

// PrimusVerifyRequest is the POST /primus/verify body.
type PrimusVerifyRequest struct {
	Attestation string `json:"attestation" validate:"required"`
}

// PrimusVerifyReply is the POST /primus/verify success body.
type PrimusVerifyReply struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

// PrimusInitReply is the POST /primus/init success body.
type PrimusInitReply struct {
	Success bool `json:"success"`
}

// IdentityReply is the GET /identity success body.
type IdentityReply struct {
	Success      bool    `json:"success"`
	PassportHash *string `json:"passportHash"`
}

// HealthReply is the GET /health success body.
type HealthReply struct {
	Success bool `json:"success"`
	Store   bool `json:"store"`
}

// VerifyAttestation decodes the base64 request fields and runs the
// attestation pipeline.
func (c *Client) VerifyAttestation(ctx context.Context, req *VerifyAttestationRequest) (*VerifyAttestationReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:VerifyAttestation")
	defer span.End()

	attestationBytes, err := decodeBase64(req.Attestation)
	if err != nil {
		return nil, err
	}

	publicKeyDER, err := c.attest.VerifyAttestation(ctx, attestationBytes, []byte(req.Challenge), req.KeyID)
	if err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}

	return &VerifyAttestationReply{
		Success:   true,
		PublicKey: encodeBase64(publicKeyDER),
	}, nil
}

// VerifyAssertion runs the assertion pipeline for an enrolled device.
func (c *Client) VerifyAssertion(ctx context.Context, req *VerifyAssertionRequest) (*VerifyAssertionReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:VerifyAssertion")
	defer span.End()

	assertionBytes, err := decodeBase64(req.Assertion)
	if err != nil {
		return nil, err
	}

	if err := c.attest.VerifyAssertion(ctx, assertionBytes, req.KeyID, req.PassportHash, req.EVMAddress); err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}

	return &VerifyAssertionReply{
		Success:      true,
		EVMAddress:   req.EVMAddress,
		PassportHash: req.PassportHash,
	}, nil
}

// Identity answers GET /identity?address=; a miss is never an error, it
// reports passportHash=null.
func (c *Client) Identity(ctx context.Context, address string) (*IdentityReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:Identity")
	defer span.End()

	record, err := c.store.FindByAddress(ctx, address)
	if err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}
	if record == nil || record.PassportHash == "" {
		return &IdentityReply{Success: true, PassportHash: nil}, nil
	}
	hash := record.PassportHash
	return &IdentityReply{Success: true, PassportHash: &hash}, nil
}

// PrimusInit validates that the broker has usable credentials configured.
func (c *Client) PrimusInit(ctx context.Context) (*PrimusInitReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:PrimusInit")
	defer span.End()

	if err := c.broker.InitOnce(ctx); err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}
	return &PrimusInitReply{Success: true}, nil
}

// PrimusSign signs a provider request envelope on behalf of the caller.
func (c *Client) PrimusSign(ctx context.Context, req *PrimusSignRequest) (*PrimusSignReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:PrimusSign")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.broker.Timeout())
	defer cancel()

	signed, err := c.broker.SignRequest(ctx, req.TemplateID, req.UserAddress)
	if err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}
	return &PrimusSignReply{Success: true, SignedRequestStr: signed}, nil
}

// PrimusVerify verifies a client-returned provider artifact.
func (c *Client) PrimusVerify(ctx context.Context, req *PrimusVerifyRequest) (*PrimusVerifyReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:PrimusVerify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.broker.Timeout())
	defer cancel()

	verified, err := c.broker.VerifyArtifact(ctx, req.Attestation)
	if err != nil {
		span.SetStatus(otelError, err.Error())
		return nil, err
	}
	return &PrimusVerifyReply{Success: true, Verified: verified}, nil
}

// Health reports liveness plus store reachability.
func (c *Client) Health(ctx context.Context) (*HealthReply, error) {
	ctx, span := c.tracer.Start(ctx, "apiv1:Health")
	defer span.End()

	_, err := c.store.FindByAddress(ctx, "0x0000000000000000000000000000000000000000")
	reply := &HealthReply{Success: true, Store: err == nil}
	if err != nil {
		c.log.Debug("health store check failed", "error", err)
	}
	return reply, nil
}
