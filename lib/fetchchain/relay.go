package fetchchain

import (
	"context"
	"fmt"
	"net/url"
	"time"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const defaultRelayEndpoint = "https://api.scraperapi.com/"

// RelayStrategy issues the request through a third-party fetch relay
// that executes it from varied egress points, sidestepping source-IP
// blocking by the target's edge WAF. It is only mounted into the chain
// when an API key is configured.
type RelayStrategy struct {
	client   *resty.Client
	apiKey   string
	endpoint string
}

type RelayOptions struct {
	ApiKey string
	// Endpoint overrides the relay service URL, used by tests and the
	// legacy relay fallback config.
	Endpoint string
}

func NewRelayStrategy(opts RelayOptions) *RelayStrategy {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultRelayEndpoint
	}

	client := resty.New()
	// the explicit session jar is the only cookie carrier; resty's
	// default jar would leak cookies between integrations sharing this
	// client
	client.SetCookieJar(nil)
	// the relay does the actual page fetch, give it room
	client.SetTimeout(time.Second * 70)
	telemetry.InstrumentResty(client, "fetchchain/relay")

	return &RelayStrategy{
		client:   client,
		apiKey:   opts.ApiKey,
		endpoint: endpoint,
	}
}

func (s *RelayStrategy) Name() string {
	return "relay"
}

func (s *RelayStrategy) Do(ctx context.Context, req Request, jar sessionjar.Jar) (string, error) {
	query := url.Values{}
	query.Set("api_key", s.apiKey)
	query.Set("url", req.URL)
	query.Set("keep_headers", "true")

	r := s.client.R().SetContext(ctx)
	if !jar.Empty() {
		r.SetHeader("Cookie", jar.Header())
	}
	if req.Referer != "" {
		r.SetHeader("Referer", req.Referer)
	}

	var res *resty.Response
	var err error
	target := s.endpoint + "?" + query.Encode()
	if req.Form != nil {
		res, err = r.
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(req.Form.Encode()).
			Post(target)
	} else {
		res, err = r.Get(target)
	}
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}

	jar.MergeResponse(res.RawResponse)

	body := res.String()
	if err := checkUsable(res.StatusCode(), body); err != nil {
		return "", err
	}
	// the relay reports some failures as 200s with a short error blurb
	if len(body) < minPlausibleBody {
		return "", fmt.Errorf("implausibly short relay body (%d bytes)", len(body))
	}
	return body, nil
}
