package speckable

import (
	"encoding/json"
	"strconv"
	"strings"
	"wholesale-backend/lib/htmlutil"
	"wholesale-backend/lib/scrapers"

	"github.com/PuerkitoBio/goquery"
)

// jsonLdProduct is the loose shape of an embedded structured-data
// block. Every field is optional; types vary wildly between sites so
// the flexible ones decode through json.RawMessage.
type jsonLdProduct struct {
	Type        json.RawMessage `json:"@type"`
	Name        string          `json:"name"`
	Sku         string          `json:"sku"`
	Gtin13      string          `json:"gtin13"`
	Gtin        string          `json:"gtin"`
	Description string          `json:"description"`
	Brand       json.RawMessage `json:"brand"`
	Offers      json.RawMessage `json:"offers"`
}

type jsonLdOffer struct {
	Price         json.RawMessage `json:"price"`
	PriceCurrency string          `json:"priceCurrency"`
}

// ParseProductPage resolves a single product detail page. Structured
// data (JSON-LD) is the primary source; markup passes fill in whatever
// it omits. Pure and non-failing: malformed input degrades to a
// partially filled record.
func ParseProductPage(html string) scrapers.ProductDetail {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scrapers.ProductDetail{}
	}

	detail := scrapers.ProductDetail{}
	detail.Currency = "PLN"

	applyStructuredData(doc, &detail)

	if detail.Name == "" {
		detail.Name = htmlutil.CleanText(doc.Find("h1").First().Text())
	}
	if detail.Symbol == "" {
		detail.Symbol = htmlutil.CleanText(doc.Find(".product-symbol").First().Text())
	}

	if descHtml, err := doc.Find("div.product-description").First().Html(); err == nil && strings.TrimSpace(descHtml) != "" {
		detail.DescriptionHtml = htmlutil.Sanitize(descHtml)
		if detail.Description == "" {
			detail.Description = htmlutil.StripTags(descHtml)
		}
	}

	detail.Specs = extractSpecs(doc)
	detail.Images = extractGallery(doc)
	if len(detail.Images) > 0 && detail.Image == "" {
		detail.Image = detail.Images[0]
	}

	if detail.PriceNetto == nil {
		detail.PriceNetto = extractSplitPrice(doc.Find(".price-netto").First())
	}
	detail.PriceBrutto = extractSplitPrice(doc.Find(".price-brutto").First())

	detail.StockInternal = htmlutil.CleanText(doc.Find(".stock-internal").First().Text())
	detail.StockExternal = htmlutil.CleanText(doc.Find(".stock-external").First().Text())
	detail.Stock = detail.StockInternal
	detail.Unit = htmlutil.CleanText(doc.Find(".product-unit").First().Text())

	detail.Breadcrumb = extractBreadcrumb(doc.Selection)
	detail.Related = extractProductCards(doc.Find("div.related-products"))

	if canonical := doc.Find(`link[rel="canonical"]`).AttrOr("href", ""); canonical != "" {
		detail.Url = htmlutil.AbsURL(BaseUrl, canonical)
		if i := strings.Index(detail.Url, productPrefix); i >= 0 {
			detail.Slug = detail.Url[i:]
		}
	}

	return detail
}

// applyStructuredData adopts the first Product-typed JSON-LD block as
// the primary source for identity fields.
func applyStructuredData(doc *goquery.Document, detail *scrapers.ProductDetail) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		product, found := decodeProductBlock([]byte(script.Text()))
		if !found {
			return true
		}

		detail.Name = htmlutil.CleanText(product.Name)
		detail.Symbol = strings.TrimSpace(product.Sku)
		detail.Ean = strings.TrimSpace(product.Gtin13)
		if detail.Ean == "" {
			detail.Ean = strings.TrimSpace(product.Gtin)
		}
		detail.Brand = decodeBrand(product.Brand)
		detail.Description = strings.TrimSpace(product.Description)

		price, currency := decodeOffer(product.Offers)
		if price != nil {
			detail.PriceNetto = price
		}
		if currency != "" {
			detail.Currency = currency
		}
		return false
	})
}

// decodeProductBlock handles the three shapes seen in the wild: a bare
// Product object, an array of objects, and an @graph envelope.
func decodeProductBlock(raw []byte) (jsonLdProduct, bool) {
	var single jsonLdProduct
	if err := json.Unmarshal(raw, &single); err == nil && isProductType(single.Type) {
		return single, true
	}

	var list []jsonLdProduct
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if isProductType(item.Type) {
				return item, true
			}
		}
	}

	var graph struct {
		Graph []jsonLdProduct `json:"@graph"`
	}
	if err := json.Unmarshal(raw, &graph); err == nil {
		for _, item := range graph.Graph {
			if isProductType(item.Type) {
				return item, true
			}
		}
	}

	return jsonLdProduct{}, false
}

func isProductType(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "Product"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, s := range list {
			if s == "Product" {
				return true
			}
		}
	}
	return false
}

func decodeBrand(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}

func decodeOffer(raw json.RawMessage) (*float64, string) {
	if len(raw) == 0 {
		return nil, ""
	}

	var offer jsonLdOffer
	if err := json.Unmarshal(raw, &offer); err != nil {
		var list []jsonLdOffer
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return nil, ""
		}
		offer = list[0]
	}

	var price *float64
	var asNumber float64
	if err := json.Unmarshal(offer.Price, &asNumber); err == nil {
		price = &asNumber
	} else {
		var asString string
		if err := json.Unmarshal(offer.Price, &asString); err == nil {
			asString = strings.ReplaceAll(strings.TrimSpace(asString), ",", ".")
			if parsed, err := strconv.ParseFloat(asString, 64); err == nil {
				price = &parsed
			}
		}
	}
	return price, strings.TrimSpace(offer.PriceCurrency)
}

// extractSpecs pulls name/value pairs out of the technical-data list
// using the colon-separated convention.
func extractSpecs(doc *goquery.Document) []scrapers.Spec {
	var specs []scrapers.Spec
	doc.Find("div.technical-data li").Each(func(_ int, li *goquery.Selection) {
		text := htmlutil.CleanText(li.Text())
		name, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			return
		}
		specs = append(specs, scrapers.Spec{Name: name, Value: value})
	})
	return specs
}

// extractGallery prefers full-resolution photo-item anchors, then
// photo-container images, then anything that looks like a catalog
// image. Placeholder assets are filtered and URLs deduplicated.
func extractGallery(doc *goquery.Document) []string {
	var urls []string
	seen := map[string]struct{}{}

	add := func(src string) {
		if !plausibleCatalogImage(src) {
			return
		}
		abs := htmlutil.AbsURL(BaseUrl, src)
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}

	doc.Find("a.photo-item").Each(func(_ int, a *goquery.Selection) {
		add(a.AttrOr("href", ""))
	})
	if len(urls) > 0 {
		return urls
	}

	doc.Find(".product-photo img").Each(func(_ int, img *goquery.Selection) {
		add(imageSrc(img))
	})
	if len(urls) > 0 {
		return urls
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		add(imageSrc(img))
	})
	return urls
}
