package fetchchain

import (
	"context"
	"fmt"
	"time"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultMaxRetries = 3
const defaultBackoff = time.Second * 2

// DirectStrategy fetches the page straight from this process with
// bounded retries. Attempts are strictly sequential: each one may
// mutate the jar the next attempt depends on.
type DirectStrategy struct {
	client     *resty.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

type DirectOptions struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewDirectStrategy(opts DirectOptions) *DirectStrategy {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	client := resty.New()
	// the explicit session jar is the only cookie carrier; resty's
	// default jar would leak cookies between integrations sharing this
	// client
	client.SetCookieJar(nil)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	telemetry.InstrumentResty(client, "fetchchain/direct")

	return &DirectStrategy{
		client: client,
		// politeness cap on the target site, not on the relay
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}
}

func (s *DirectStrategy) Name() string {
	return "direct"
}

func (s *DirectStrategy) Do(ctx context.Context, req Request, jar sessionjar.Jar) (string, error) {
	attempts := s.maxRetries
	if req.Form != nil {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// linear backoff between attempts
			select {
			case <-time.After(s.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := s.attempt(ctx, req, jar, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (s *DirectStrategy) attempt(ctx context.Context, req Request, jar sessionjar.Jar, attempt int) (string, error) {
	err := s.limiter.Wait(ctx)
	if err != nil {
		return "", err
	}

	r := s.client.R().SetContext(ctx)
	if !jar.Empty() {
		r.SetHeader("Cookie", jar.Header())
	}
	// a referer makes retries look like in-site navigation
	if req.Referer != "" {
		r.SetHeader("Referer", req.Referer)
	} else if attempt > 0 {
		r.SetHeader("Referer", req.URL)
	}

	var res *resty.Response
	if req.Form != nil {
		res, err = r.
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(req.Form.Encode()).
			Post(req.URL)
	} else {
		res, err = r.Get(req.URL)
	}
	if err != nil {
		return "", fmt.Errorf("attempt %d: %w", attempt+1, err)
	}

	// merge cookies even on a failed attempt, a rejected response may
	// still have advanced the session
	jar.MergeResponse(res.RawResponse)

	body := res.String()
	if err := checkUsable(res.StatusCode(), body); err != nil {
		return "", fmt.Errorf("attempt %d: %w", attempt+1, err)
	}
	return body, nil
}
