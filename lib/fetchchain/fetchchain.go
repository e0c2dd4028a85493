// Package fetchchain performs HTTP fetches against a bot-mitigated
// catalog site through an ordered list of strategies. Strategies are
// tried strictly in order and the first usable response wins; failure
// reasons from every attempted strategy are aggregated into the
// returned error.
package fetchchain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"wholesale-backend/lib/sessionjar"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/fetchchain")

// Request describes one fetch. A non-nil Form makes it a POST; form
// requests are attempted exactly once per strategy since replaying a
// form without re-deriving its anti-forgery token is not safe.
type Request struct {
	URL     string
	Referer string
	Form    url.Values
}

type Strategy interface {
	Name() string
	// Do returns the response body. It may mutate the jar by merging
	// Set-Cookie headers seen during the attempt.
	Do(ctx context.Context, req Request, jar sessionjar.Jar) (string, error)
}

type Chain struct {
	strategies []Strategy
}

func New(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

func (c *Chain) Get(ctx context.Context, pageUrl string, jar sessionjar.Jar) (string, error) {
	return c.do(ctx, Request{URL: pageUrl}, jar)
}

func (c *Chain) GetWithReferer(ctx context.Context, pageUrl, referer string, jar sessionjar.Jar) (string, error) {
	return c.do(ctx, Request{URL: pageUrl, Referer: referer}, jar)
}

func (c *Chain) PostForm(ctx context.Context, pageUrl string, form url.Values, referer string, jar sessionjar.Jar) (string, error) {
	return c.do(ctx, Request{URL: pageUrl, Referer: referer, Form: form}, jar)
}

func (c *Chain) do(ctx context.Context, req Request, jar sessionjar.Jar) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", req.URL))

	if len(c.strategies) == 0 {
		return "", fmt.Errorf("no fetch strategies configured")
	}

	var reasons []string
	for _, strategy := range c.strategies {
		body, err := strategy.Do(ctx, req, jar)
		if err == nil {
			span.SetAttributes(attribute.String("strategy", strategy.Name()))
			return body, nil
		}
		span.AddEvent("strategy failed")
		reasons = append(reasons, fmt.Sprintf("%s: %s", strategy.Name(), err.Error()))
	}

	err := fmt.Errorf("all fetch strategies failed: %s", strings.Join(reasons, "; "))
	span.RecordError(err)
	span.SetStatus(codes.Error, "all fetch strategies failed")
	return "", err
}
