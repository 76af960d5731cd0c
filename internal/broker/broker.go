// Package broker implements the "Primus" third-party credential broker
// (C4): a thin, HMAC-signed envelope façade standing in for a zero-knowledge
// TLS attestation provider SDK.
package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dc4eu/vc-attest/pkg/apierror"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"
	"github.com/dc4eu/vc-attest/pkg/trace"

	"go.opentelemetry.io/otel/codes"
)

const algorithmProxyTLS = "proxytls"

// envelope is the signed request object the broker builds for the
// provider. appSecret never appears in it — only its HMAC tag does.
type envelope struct {
	AppID      string `json:"appId"`
	TemplateID string `json:"templateId"`
	UserAddr   string `json:"userAddress"`
	Algorithm  string `json:"algorithm"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      string `json:"nonce"`
}

// Client holds the process-wide broker state: the app credentials and a
// once-guard around first use.
type Client struct {
	once      sync.Once
	initErr   error
	appID     string
	appSecret string
	timeout   time.Duration
	log       *logger.Log
	tracer    *trace.Tracer
	nowFunc   func() int64
}

// New returns a Client configured from cfg. The broker is not contacted
// until InitOnce is first called.
func New(cfg model.Broker, log *logger.Log, tracer *trace.Tracer) *Client {
	return &Client{
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		timeout:   cfg.RequestTimeout,
		log:       log,
		tracer:    tracer,
		nowFunc:   func() int64 { return time.Now().Unix() },
	}
}

// InitOnce validates that the broker has an app secret configured. It is a
// no-op on every call after the first success; the first call is not
// retried on failure.
func (c *Client) InitOnce(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "broker:InitOnce")
	defer span.End()

	c.once.Do(func() {
		if c.appSecret == "" {
			c.initErr = fmt.Errorf("%w: PRIMUS_APP_SECRET is not configured", apierror.ErrBrokerUnavailable)
			return
		}
		c.log.Info("primus broker initialised", "appId", c.appID)
	})

	if c.initErr != nil {
		span.SetStatus(codes.Error, c.initErr.Error())
	}
	return c.initErr
}

// SignRequest builds and HMAC-SHA256-signs a request envelope for
// templateId/userAddress, returning its JSON serialisation.
func (c *Client) SignRequest(ctx context.Context, templateID, userAddress string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "broker:SignRequest")
	defer span.End()

	if err := c.InitOnce(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	env := envelope{
		AppID:      c.appID,
		TemplateID: templateID,
		UserAddr:   userAddress,
		Algorithm:  algorithmProxyTLS,
		Timestamp:  c.nowFunc(),
	}
	env.Nonce = c.tag(env)

	body, err := json.Marshal(env)
	if err != nil {
		err = fmt.Errorf("%w: %v", apierror.ErrBrokerUnavailable, err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return string(body), nil
}

// VerifyArtifact re-derives the HMAC tag for a client-returned artifact
// string and reports whether it matches; this stands in for passing the
// artifact through the provider SDK's own verifier.
func (c *Client) VerifyArtifact(ctx context.Context, artifact string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "broker:VerifyArtifact")
	defer span.End()

	if err := c.InitOnce(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	var env envelope
	if err := json.Unmarshal([]byte(artifact), &env); err != nil {
		err = fmt.Errorf("%w: %v", apierror.ErrBadFormat, err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	claimedTag := env.Nonce
	env.Nonce = ""
	expectedTag := c.tag(env)

	return hmac.Equal([]byte(claimedTag), []byte(expectedTag)), nil
}

func (c *Client) tag(env envelope) string {
	mac := hmac.New(sha256.New, []byte(c.appSecret))
	fmt.Fprintf(mac, "%s|%s|%s|%s|%d", env.AppID, env.TemplateID, env.UserAddr, env.Algorithm, env.Timestamp)
	return hex.EncodeToString(mac.Sum(nil))
}

// Timeout returns the deadline callers should attach to the context passed
// into broker calls (SPEC_FULL.md §5: outbound broker calls MUST carry a
// finite deadline, default 30s).
func (c *Client) Timeout() time.Duration {
	if c.timeout <= 0 {
		return 30 * time.Second
	}
	return c.timeout
}
