// Package megalux scrapes the Megalux wholesaler. Its storefront ships
// a JSON search endpoint, so search skips HTML extraction entirely;
// only the login flow and product pages are scraped markup.
package megalux

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"wholesale-backend/lib/fetchchain"
	"wholesale-backend/lib/htmlutil"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/megalux")

const (
	WholesalerID = "megalux"
	BaseUrl      = "https://www.megalux-hurt.pl"

	productPrefix = "/p/"
)

var ErrLoginReject = fmt.Errorf("megalux rejected the credentials")

type Client struct {
	chain *fetchchain.Chain
}

func New(direct fetchchain.DirectOptions) *Client {
	return &Client{
		chain: fetchchain.New(fetchchain.NewDirectStrategy(direct)),
	}
}

func (c *Client) WholesalerID() string {
	return WholesalerID
}

func (c *Client) SiteURL() string {
	return BaseUrl
}

// Login lifts the CSRF token from the login page's meta tag before
// posting the credentials.
func (c *Client) Login(ctx context.Context, username, password string) (sessionjar.Jar, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	jar := sessionjar.New()

	loginHtml, err := c.chain.Get(ctx, BaseUrl+"/login", jar)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %s", ErrLoginReject, err.Error())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(loginHtml))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoginReject, err.Error())
	}
	token := doc.Find(`meta[name="csrf-token"]`).AttrOr("content", "")
	if token == "" {
		span.SetStatus(codes.Error, "csrf meta tag not found")
		return nil, ErrLoginReject
	}

	form := url.Values{}
	form.Set("_csrf", token)
	form.Set("email", username)
	form.Set("password", password)

	html, err := c.chain.PostForm(ctx, BaseUrl+"/login", form, BaseUrl+"/login", jar)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %s", ErrLoginReject, err.Error())
	}
	if !strings.Contains(html, "data-logged-in") {
		span.SetStatus(codes.Error, "no logged-in marker after login")
		return nil, ErrLoginReject
	}
	return jar, nil
}

func (c *Client) CheckSession(ctx context.Context, jar sessionjar.Jar) (bool, error) {
	html, err := c.chain.Get(ctx, BaseUrl+"/login", jar)
	if err != nil {
		return false, err
	}
	return strings.Contains(html, "data-logged-in"), nil
}

func (c *Client) Categories() []scrapers.Category {
	return []scrapers.Category{
		{Name: "Oświetlenie", Slug: "/k/oswietlenie"},
		{Name: "Osprzęt elektryczny", Slug: "/k/osprzet"},
		{Name: "Kable i przewody", Slug: "/k/kable"},
	}
}

// searchResponse is the storefront's native search payload.
type searchResponse struct {
	Items []struct {
		Name     string  `json:"name"`
		Code     string  `json:"code"`
		Url      string  `json:"url"`
		Image    string  `json:"image"`
		NetPrice *string `json:"net_price"`
		Stock    string  `json:"availability"`
	} `json:"items"`
}

func (c *Client) Search(ctx context.Context, jar sessionjar.Jar, query string) (scrapers.ListPage, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	// the API rejects requests that don't look like in-site navigation
	endpoint := BaseUrl + "/api/search?q=" + url.QueryEscape(query)
	body, err := c.chain.GetWithReferer(ctx, endpoint, BaseUrl+"/", jar)
	if err != nil {
		span.RecordError(err)
		return scrapers.ListPage{}, err
	}
	return ParseSearchResponse(body), nil
}

// ParseSearchResponse converts the JSON search payload into the shared
// listing shape. Unparsable payloads degrade to an empty page.
func ParseSearchResponse(body string) scrapers.ListPage {
	var res searchResponse
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return scrapers.ListPage{}
	}

	page := scrapers.ListPage{}
	seen := map[string]struct{}{}
	for _, item := range res.Items {
		slug := item.Url
		if i := strings.Index(slug, productPrefix); i > 0 {
			slug = slug[i:]
		}
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}

		var price *float64
		if item.NetPrice != nil {
			if value, ok := textutil.ParsePrice(*item.NetPrice); ok {
				price = &value
			}
		}

		page.Products = append(page.Products, scrapers.Product{
			Name:       htmlutil.CleanText(item.Name),
			Symbol:     strings.TrimSpace(item.Code),
			Slug:       slug,
			Image:      htmlutil.AbsURL(BaseUrl, item.Image),
			PriceNetto: price,
			Currency:   "PLN",
			Stock:      strings.TrimSpace(item.Stock),
		})
	}

	page.HasProducts = len(page.Products) > 0
	return page
}

func (c *Client) ListProducts(ctx context.Context, jar sessionjar.Jar, categorySlug string, page int) (scrapers.ListPage, error) {
	pageUrl := BaseUrl + categorySlug
	if page > 1 {
		pageUrl += "?page=" + strconv.Itoa(page)
	}
	// category pages reuse the embedded search payload
	html, err := c.chain.Get(ctx, pageUrl, jar)
	if err != nil {
		return scrapers.ListPage{}, err
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if docErr != nil {
		return scrapers.ListPage{}, nil
	}
	payload := doc.Find(`script[type="application/json"]#listing-data`).First().Text()
	return ParseSearchResponse(payload), nil
}

func (c *Client) GetProduct(ctx context.Context, jar sessionjar.Jar, slug string) (scrapers.ProductDetail, error) {
	if !strings.HasPrefix(slug, productPrefix) {
		slug = productPrefix + strings.TrimPrefix(slug, "/")
	}
	html, err := c.chain.Get(ctx, BaseUrl+slug, jar)
	if err != nil {
		return scrapers.ProductDetail{}, err
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	detail := scrapers.ProductDetail{}
	detail.Slug = slug
	detail.Url = BaseUrl + slug
	detail.Currency = "PLN"
	if docErr != nil {
		return detail, nil
	}

	detail.Name = htmlutil.CleanText(doc.Find("h1").First().Text())
	detail.Symbol = htmlutil.CleanText(doc.Find(".product-code").First().Text())
	if value, ok := textutil.ParsePrice(doc.Find(".net-price").First().Text()); ok {
		detail.PriceNetto = &value
	}
	detail.Stock = htmlutil.CleanText(doc.Find(".availability").First().Text())
	return detail, nil
}
