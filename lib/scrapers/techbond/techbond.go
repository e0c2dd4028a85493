// Package techbond scrapes the Techbond wholesaler. A much tamer
// target than Speckable: no bot mitigation, plain form login and a
// table-based search page. Mainly consulted by price reconciliation.
package techbond

import (
	"context"
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

var tracer = otel.Tracer("scrapers/techbond")

const (
	WholesalerID = "techbond"
	BaseUrl      = "https://b2b.techbond.pl"

	productPrefix = "/produkt/"
)

var ErrLoginReject = fmt.Errorf("techbond rejected the credentials")

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

func (c *Client) Login(ctx context.Context, username, password string) (sessionjar.Jar, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	jar := sessionjar.New()
	form := url.Values{}
	form.Set("login", username)
	form.Set("haslo", password)

	html, err := c.chain.PostForm(ctx, BaseUrl+"/logowanie", form, BaseUrl+"/logowanie", jar)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login post failed")
		return nil, fmt.Errorf("%w: %s", ErrLoginReject, err.Error())
	}
	if !strings.Contains(html, "wyloguj") {
		span.SetStatus(codes.Error, "no logout marker after login")
		return nil, ErrLoginReject
	}
	return jar, nil
}

func (c *Client) CheckSession(ctx context.Context, jar sessionjar.Jar) (bool, error) {
	html, err := c.chain.Get(ctx, BaseUrl+"/konto", jar)
	if err != nil {
		return false, err
	}
	return strings.Contains(html, "wyloguj"), nil
}

func (c *Client) Categories() []scrapers.Category {
	return []scrapers.Category{
		{Name: "Narzędzia", Slug: "/kategoria/narzedzia"},
		{Name: "Elektryka", Slug: "/kategoria/elektryka"},
		{Name: "Budowlanka", Slug: "/kategoria/budowlanka"},
	}
}

func (c *Client) ListProducts(ctx context.Context, jar sessionjar.Jar, categorySlug string, page int) (scrapers.ListPage, error) {
	pageUrl := BaseUrl + categorySlug
	if page > 1 {
		pageUrl += "?strona=" + strconv.Itoa(page)
	}
	html, err := c.chain.Get(ctx, pageUrl, jar)
	if err != nil {
		return scrapers.ListPage{}, err
	}
	return ParseSearchPage(html), nil
}

func (c *Client) Search(ctx context.Context, jar sessionjar.Jar, query string) (scrapers.ListPage, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	pageUrl := BaseUrl + "/szukaj?fraza=" + url.QueryEscape(query)
	html, err := c.chain.Get(ctx, pageUrl, jar)
	if err != nil {
		span.RecordError(err)
		return scrapers.ListPage{}, err
	}
	return ParseSearchPage(html), nil
}

func (c *Client) GetProduct(ctx context.Context, jar sessionjar.Jar, slug string) (scrapers.ProductDetail, error) {
	if !strings.HasPrefix(slug, productPrefix) {
		slug = productPrefix + strings.TrimPrefix(slug, "/")
	}
	html, err := c.chain.Get(ctx, BaseUrl+slug, jar)
	if err != nil {
		return scrapers.ProductDetail{}, err
	}

	page := ParseSearchPage(html)
	detail := scrapers.ProductDetail{Url: BaseUrl + slug}
	detail.Slug = slug
	detail.Currency = "PLN"
	if len(page.Products) > 0 {
		detail.Product = page.Products[0]
	}
	return detail, nil
}

// ParseSearchPage extracts the result table. Pure and non-failing.
func ParseSearchPage(html string) scrapers.ListPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scrapers.ListPage{}
	}

	page := scrapers.ListPage{}
	seen := map[string]struct{}{}

	doc.Find("table.results tr.product-row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		slug := link.AttrOr("href", "")
		if i := strings.Index(slug, productPrefix); i > 0 {
			slug = slug[i:]
		}
		if !strings.HasPrefix(slug, productPrefix) {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}

		var price *float64
		if value, ok := textutil.ParsePrice(row.Find("td.cena").First().Text()); ok {
			price = &value
		}

		page.Products = append(page.Products, scrapers.Product{
			Name:       htmlutil.CleanText(link.Text()),
			Symbol:     htmlutil.CleanText(row.Find("td.symbol").First().Text()),
			Slug:       slug,
			Image:      htmlutil.AbsURL(BaseUrl, row.Find("img").First().AttrOr("src", "")),
			PriceNetto: price,
			Currency:   "PLN",
			Stock:      htmlutil.CleanText(row.Find("td.stan").First().Text()),
		})
	})

	page.HasProducts = len(page.Products) > 0
	return page
}
