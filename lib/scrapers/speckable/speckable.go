// Package speckable scrapes the Speckable wholesaler catalog. The site
// gates prices behind a scraped login session and fronts everything
// with bot-mitigation middleware, so every fetch goes through the
// relay/direct strategy chain and every extraction is best-effort.
package speckable

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"wholesale-backend/lib/fetchchain"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/sessionjar"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/speckable")

const (
	WholesalerID = "speckable"

	BaseUrl       = "https://www.speckable.pl"
	productPrefix = "/pl/product/"
	listPrefix    = "/pl/list/"
	loginPath     = "/pl/login"
	searchPath    = "/pl/search"

	// slug depth of a top-level taxonomy node: /pl/list/<name>
	topLevelDepth = 3

	// fixed listing grid size; the site exposes no authoritative total
	PageSize = 36
)

var (
	ErrLoginPage    = fmt.Errorf("login page unreachable")
	ErrLoginToken   = fmt.Errorf("login form token not found")
	ErrLoginReject  = fmt.Errorf("credentials rejected")
	ErrProductFetch = fmt.Errorf("product page unreachable")
)

type Client struct {
	chain       *fetchchain.Chain
	relayActive bool
}

type Options struct {
	// RelayApiKey enables the relay strategy; empty silently disables
	// it and the chain degrades to direct fetching only.
	RelayApiKey   string
	RelayEndpoint string
	Direct        fetchchain.DirectOptions
}

func New(opts Options) *Client {
	var strategies []fetchchain.Strategy
	if opts.RelayApiKey != "" {
		strategies = append(strategies, fetchchain.NewRelayStrategy(fetchchain.RelayOptions{
			ApiKey:   opts.RelayApiKey,
			Endpoint: opts.RelayEndpoint,
		}))
	}
	strategies = append(strategies, fetchchain.NewDirectStrategy(opts.Direct))

	return &Client{
		chain:       fetchchain.New(strategies...),
		relayActive: opts.RelayApiKey != "",
	}
}

func (c *Client) WholesalerID() string {
	return WholesalerID
}

func (c *Client) SiteURL() string {
	return BaseUrl
}

// CookielessCapable reports whether the configured chain can browse the
// catalog without a scraped session (the relay executes from egress
// points the WAF tolerates, so the session dance is moot for browsing).
func (c *Client) CookielessCapable() bool {
	return c.relayActive
}

// Login performs the scripted credential flow: warm up the homepage
// (failures ignored, it only seeds cookies), fetch the login form,
// lift its anti-forgery token and post the credentials. The token is
// treated as an opaque string. Success is judged by logged-in markers
// in the response body.
func (c *Client) Login(ctx context.Context, username, password string) (sessionjar.Jar, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	jar := sessionjar.New()

	_, _ = c.chain.Get(ctx, BaseUrl+"/", jar)

	loginHtml, err := c.chain.Get(ctx, BaseUrl+loginPath, jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login page unreachable")
		return nil, fmt.Errorf("%w: %s", ErrLoginPage, err.Error())
	}

	token := extractLoginToken(loginHtml)
	if token == "" {
		span.SetStatus(codes.Error, "login token not found")
		return nil, ErrLoginToken
	}

	form := url.Values{}
	form.Set("_token", token)
	form.Set("username", username)
	form.Set("password", password)

	resultHtml, err := c.chain.PostForm(ctx, BaseUrl+loginPath, form, BaseUrl+loginPath, jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login post failed")
		return nil, fmt.Errorf("%w: %s", ErrLoginReject, err.Error())
	}

	if !hasLoggedInMarkers(resultHtml) {
		span.SetStatus(codes.Error, "no logged-in markers after login post")
		return nil, ErrLoginReject
	}

	return jar, nil
}

// CheckSession probes the login page and classifies the response:
// a logout affordance means the jar still holds a live session, a login
// form token means it expired.
func (c *Client) CheckSession(ctx context.Context, jar sessionjar.Jar) (bool, error) {
	ctx, span := tracer.Start(ctx, "CheckSession")
	defer span.End()

	html, err := c.chain.Get(ctx, BaseUrl+loginPath, jar)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	if hasLoggedInMarkers(html) {
		return true, nil
	}
	return false, nil
}

func (c *Client) Categories() []scrapers.Category {
	return staticCategories
}

func (c *Client) ListProducts(ctx context.Context, jar sessionjar.Jar, categorySlug string, page int) (scrapers.ListPage, error) {
	ctx, span := tracer.Start(ctx, "ListProducts")
	defer span.End()
	span.SetAttributes(attribute.String("category", categorySlug), attribute.Int("page", page))

	slug := normalizeCategorySlug(categorySlug)
	pageUrl := BaseUrl + slug
	if page > 1 {
		pageUrl += "?page=" + strconv.Itoa(page)
	}

	html, err := c.chain.Get(ctx, pageUrl, jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing fetch failed")
		return scrapers.ListPage{}, err
	}

	result := ParseListPage(html, slug)
	result.LoginWall = IsLoginForm(html)
	return result, nil
}

func (c *Client) Search(ctx context.Context, jar sessionjar.Jar, query string) (scrapers.ListPage, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	pageUrl := BaseUrl + searchPath + "?q=" + url.QueryEscape(query)
	html, err := c.chain.Get(ctx, pageUrl, jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search fetch failed")
		return scrapers.ListPage{}, err
	}

	result := ParseListPage(html, searchPath)
	result.LoginWall = IsLoginForm(html)
	return result, nil
}

func (c *Client) GetProduct(ctx context.Context, jar sessionjar.Jar, slug string) (scrapers.ProductDetail, error) {
	ctx, span := tracer.Start(ctx, "GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("slug", slug))

	if !strings.HasPrefix(slug, productPrefix) {
		slug = productPrefix + strings.TrimPrefix(slug, "/")
	}

	html, err := c.chain.Get(ctx, BaseUrl+slug, jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product fetch failed")
		return scrapers.ProductDetail{}, fmt.Errorf("%w: %s", ErrProductFetch, err.Error())
	}

	detail := ParseProductPage(html)
	if detail.Slug == "" {
		detail.Slug = slug
	}
	if detail.Url == "" {
		detail.Url = BaseUrl + slug
	}
	return detail, nil
}

// IsLoginForm reports whether a fetched page is actually the login form
// served in place of the requested content, the signature of a stale
// session that passed the freshness check (cookie staleness race).
func IsLoginForm(html string) bool {
	return !hasLoggedInMarkers(html) && extractLoginToken(html) != ""
}

func extractLoginToken(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return doc.Find("input[name=_token]").AttrOr("value", "")
}

func hasLoggedInMarkers(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	if doc.Find(`a[href*="logout"]`).Length() > 0 {
		return true
	}
	return doc.Find("div.account-menu").Length() > 0
}

func normalizeCategorySlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return listPrefix[:len(listPrefix)-1]
	}
	if !strings.HasPrefix(slug, "/") {
		slug = listPrefix + slug
	}
	return strings.TrimSuffix(slug, "/")
}
