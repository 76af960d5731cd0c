package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/dc4eu/vc-attest/pkg/apierror"
	"github.com/dc4eu/vc-attest/pkg/logger"
	"github.com/dc4eu/vc-attest/pkg/model"
	"github.com/dc4eu/vc-attest/pkg/trace"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, appSecret string) *Client {
	t.Helper()

	log, err := logger.New("broker-test", "", false)
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	cfg := &model.Cfg{Common: model.Common{Tracing: model.OTEL{Enabled: false}}}
	tracer, err := trace.New(context.Background(), cfg, log, "vc-attest-test", "broker-test")
	if err != nil {
		t.Fatalf("trace.New() error = %v", err)
	}

	c := New(model.Broker{AppID: "app-1", AppSecret: appSecret}, log, tracer)
	c.nowFunc = func() int64 { return 1700000000 }
	return c
}

func TestClient_InitOnceRequiresAppSecret(t *testing.T) {
	c := newTestClient(t, "")
	err := c.InitOnce(context.Background())
	if err == nil {
		t.Fatal("InitOnce() error = nil, want ErrBrokerUnavailable")
	}
	if !errors.Is(err, apierror.ErrBrokerUnavailable) {
		t.Fatalf("InitOnce() error = %v, want wrapping %v", err, apierror.ErrBrokerUnavailable)
	}
}

func TestClient_SignRequestThenVerifyArtifact(t *testing.T) {
	c := newTestClient(t, "super-secret")

	artifact, err := c.SignRequest(context.Background(), "template-1", "0xabc")
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	ok, err := c.VerifyArtifact(context.Background(), artifact)
	if err != nil {
		t.Fatalf("VerifyArtifact() error = %v", err)
	}
	if !ok {
		t.Fatal("VerifyArtifact() = false, want true for an untampered artifact")
	}
}

func TestClient_SignRequestIsDeterministicGivenFixedClock(t *testing.T) {
	c := newTestClient(t, "super-secret")

	a, err := c.SignRequest(context.Background(), "template-1", "0xabc")
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}
	b, err := c.SignRequest(context.Background(), "template-1", "0xabc")
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("SignRequest() not deterministic for identical inputs and clock (-first +second):\n%s", diff)
	}
}

func TestClient_VerifyArtifactRejectsTamperedPayload(t *testing.T) {
	c := newTestClient(t, "super-secret")

	artifact, err := c.SignRequest(context.Background(), "template-1", "0xabc")
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	tampered := []byte(artifact)
	tampered = []byte(replaceOnce(string(tampered), `"userAddress":"0xabc"`, `"userAddress":"0xdead"`))

	ok, err := c.VerifyArtifact(context.Background(), string(tampered))
	if err != nil {
		t.Fatalf("VerifyArtifact() error = %v", err)
	}
	if ok {
		t.Fatal("VerifyArtifact() = true, want false for a tampered artifact")
	}
}

func TestClient_VerifyArtifactRejectsWrongSecret(t *testing.T) {
	signer := newTestClient(t, "secret-a")
	verifier := newTestClient(t, "secret-b")

	artifact, err := signer.SignRequest(context.Background(), "template-1", "0xabc")
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	ok, err := verifier.VerifyArtifact(context.Background(), artifact)
	if err != nil {
		t.Fatalf("VerifyArtifact() error = %v", err)
	}
	if ok {
		t.Fatal("VerifyArtifact() = true, want false when verifying with a different app secret")
	}
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
