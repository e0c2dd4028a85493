package catalog

import (
	"context"
	"fmt"
	"time"
	"wholesale-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// TokenVerifier guards the credential actions. Browsing actions are
// deliberately left open; they leak nothing beyond the wholesaler's own
// public-ish catalog.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// HttpVerifier validates bearer tokens against an external userinfo
// endpoint: any 2xx means the token is live.
type HttpVerifier struct {
	client *resty.Client
}

func NewHttpVerifier(endpoint string) *HttpVerifier {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "catalog/auth")
	return &HttpVerifier{client: client}
}

func (v *HttpVerifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("missing bearer token")
	}
	res, err := v.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		Get("")
	if err != nil {
		return fmt.Errorf("could not reach userinfo endpoint: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("token rejected with status %d", res.StatusCode())
	}
	return nil
}

// StaticVerifier accepts a single preshared token. Used for local
// development and service-to-service setups without an identity
// provider.
type StaticVerifier string

func (v StaticVerifier) Verify(_ context.Context, token string) error {
	if token != string(v) {
		return fmt.Errorf("invalid access token")
	}
	return nil
}
