// Package scrapers defines the normalized catalog data model shared by
// every wholesaler integration, and the Connector contract a wholesaler
// scraper implements. Scrapers reverse-engineer unstable HTML catalogs
// into this model; consumers only ever see these types.
package scrapers

import (
	"context"
	"wholesale-backend/lib/sessionjar"
)

type Category struct {
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Image    string     `json:"image,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// Product is the lightweight listing form returned from category and
// search pages. Slug is the only stable key; price and stock are
// best-effort and may be absent when the source page omits them.
type Product struct {
	Name       string   `json:"name"`
	Symbol     string   `json:"symbol"`
	Slug       string   `json:"slug"`
	Image      string   `json:"image"`
	PriceNetto *float64 `json:"priceNetto"`
	Currency   string   `json:"currency"`
	Stock      string   `json:"stock"`
}

type Spec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductDetail expands exactly one listing record.
type ProductDetail struct {
	Product

	Ean             string     `json:"ean"`
	Brand           string     `json:"brand"`
	PriceBrutto     *float64   `json:"priceBrutto"`
	StockInternal   string     `json:"stockInternal"`
	StockExternal   string     `json:"stockExternal"`
	Unit            string     `json:"unit"`
	Images          []string   `json:"images"`
	Description     string     `json:"description"`
	DescriptionHtml string     `json:"descriptionHtml"`
	Specs           []Spec     `json:"specs"`
	Breadcrumb      []Category `json:"breadcrumb"`
	Url             string     `json:"url"`
	Related         []Product  `json:"related"`
}

// ListPage is the tagged union a listing fetch resolves to: either a
// grid of products or a set of child categories, discriminated by
// HasProducts. Exactly one of Products/Categories is populated.
type ListPage struct {
	Title       string     `json:"title"`
	Breadcrumb  []Category `json:"breadcrumb"`
	Products    []Product  `json:"products"`
	Categories  []Category `json:"categories"`
	HasProducts bool       `json:"hasProducts"`

	// LoginWall is set when the site answered with its login form
	// instead of the requested content: the signature of a session
	// that looked fresh but expired server-side. Internal signal, not
	// part of the JSON contract.
	LoginWall bool `json:"-"`
}

// Connector is one wholesaler integration. Implementations degrade
// rather than fail: malformed pages produce empty results, and an empty
// jar means unauthenticated browsing (prices may be hidden).
type Connector interface {
	WholesalerID() string
	// SiteURL is the catalog's base origin, used to absolutize slugs
	// into user-facing source links.
	SiteURL() string

	Login(ctx context.Context, username, password string) (sessionjar.Jar, error)
	// CheckSession probes whether the jar still presents a logged-in
	// session to the site.
	CheckSession(ctx context.Context, jar sessionjar.Jar) (bool, error)

	Categories() []Category
	ListProducts(ctx context.Context, jar sessionjar.Jar, categorySlug string, page int) (ListPage, error)
	Search(ctx context.Context, jar sessionjar.Jar, query string) (ListPage, error)
	GetProduct(ctx context.Context, jar sessionjar.Jar, slug string) (ProductDetail, error)
}
