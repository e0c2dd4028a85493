package speckable

import (
	"regexp"
	"strings"
	"wholesale-backend/lib/htmlutil"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// breadcrumb entries longer than this are navigation junk, not names
const maxBreadcrumbName = 80

// once a category fallback collects more links than this, the page is
// a full site map and needs the level filter
const categoryFilterThreshold = 20

var fallbackPriceRegex = regexp.MustCompile(`(\d[\d\s\x{00a0}]*),(\d{2})`)

// ParseListPage converts a category or search results page into the
// normalized listing union. It is pure: same HTML in, same page out,
// and it never fails on malformed markup; an unrecognizable page just
// produces an empty result.
func ParseListPage(html, requestedPath string) scrapers.ListPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scrapers.ListPage{}
	}

	page := scrapers.ListPage{
		Title:      extractTitle(doc),
		Breadcrumb: extractBreadcrumb(doc.Selection),
	}

	products := extractProductCards(doc.Selection)
	if len(products) > 0 {
		page.Products = products
		page.HasProducts = true
		return page
	}

	page.Categories = extractCategoryLinks(doc, requestedPath)
	return page
}

func extractTitle(doc *goquery.Document) string {
	heading := htmlutil.CleanText(doc.Find("h1").First().Text())
	if heading != "" {
		return heading
	}

	title := htmlutil.CleanText(doc.Find("title").First().Text())
	for _, sep := range []string{" - Speckable", " | Speckable", " – Speckable"} {
		if i := strings.Index(title, sep); i >= 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

func extractBreadcrumb(sel *goquery.Selection) []scrapers.Category {
	var crumbs []scrapers.Category
	sel.Find("nav.breadcrumbs a, ul.breadcrumb a").Each(func(_ int, a *goquery.Selection) {
		name := htmlutil.CleanText(a.Text())
		if name == "" || len(name) > maxBreadcrumbName {
			return
		}
		crumbs = append(crumbs, scrapers.Category{
			Name: name,
			Slug: a.AttrOr("href", ""),
		})
	})
	return crumbs
}

// extractProductCards scans the repeating product-card blocks. A card
// without a resolvable product link is skipped outright; everything
// else is optional. Cards are deduplicated by slug in document order.
func extractProductCards(sel *goquery.Selection) []scrapers.Product {
	var products []scrapers.Product
	seen := map[string]struct{}{}

	sel.Find("div.product-item").Each(func(_ int, card *goquery.Selection) {
		slug := productSlug(card)
		if slug == "" {
			return
		}
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}

		products = append(products, scrapers.Product{
			Name:       productName(card),
			Symbol:     htmlutil.CleanText(card.Find(".product-symbol").First().Text()),
			Slug:       slug,
			Image:      productImage(card),
			PriceNetto: extractCardPrice(card),
			Currency:   "PLN",
			Stock:      htmlutil.CleanText(card.Find(".stock-label").First().Text()),
		})
	})

	return products
}

func productSlug(card *goquery.Selection) string {
	href := ""
	card.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h := a.AttrOr("href", "")
		if strings.Contains(h, productPrefix) {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return ""
	}
	if i := strings.Index(href, productPrefix); i > 0 {
		href = href[i:]
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	return href
}

func productName(card *goquery.Selection) string {
	name := htmlutil.CleanText(card.Find(".product-name").First().Text())
	if name != "" {
		return name
	}
	name = htmlutil.CleanText(card.Find("h2, h3").First().Text())
	if name != "" {
		return name
	}
	return htmlutil.CleanText(card.Find("img").First().AttrOr("alt", ""))
}

func productImage(card *goquery.Selection) string {
	img := card.Find(".product-photo img").First()
	if src := imageSrc(img); src != "" {
		return htmlutil.AbsURL(BaseUrl, src)
	}

	found := ""
	card.Find("img").EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
		src := imageSrc(candidate)
		if plausibleCatalogImage(src) {
			found = src
			return false
		}
		return true
	})
	return htmlutil.AbsURL(BaseUrl, found)
}

func imageSrc(img *goquery.Selection) string {
	src := img.AttrOr("data-src", "")
	if src == "" {
		src = img.AttrOr("src", "")
	}
	return strings.TrimSpace(src)
}

var placeholderImages = []string{"placeholder", "no-photo", "brak-zdjecia", "blank.gif"}

func plausibleCatalogImage(src string) bool {
	if src == "" {
		return false
	}
	lowered := strings.ToLower(src)
	for _, p := range placeholderImages {
		if strings.Contains(lowered, p) {
			return false
		}
	}
	return strings.Contains(lowered, "/img/") ||
		strings.Contains(lowered, "/catalog/") ||
		strings.Contains(lowered, "/photo/")
}

// extractCardPrice reads the whole+decimal price markup, falling back
// to the first comma-decimal number in the card's price region.
func extractCardPrice(card *goquery.Selection) *float64 {
	return extractSplitPrice(card.Find(".price").First())
}

func extractSplitPrice(priceSel *goquery.Selection) *float64 {
	if priceSel.Length() == 0 {
		return nil
	}

	whole := htmlutil.CleanText(priceSel.Find(".price-whole").First().Text())
	decimal := htmlutil.CleanText(priceSel.Find(".price-decimal").First().Text())
	if whole != "" {
		if decimal == "" {
			decimal = "00"
		}
		if value, ok := textutil.ParsePrice(whole + "," + decimal); ok {
			return &value
		}
	}

	match := fallbackPriceRegex.FindStringSubmatch(priceSel.Text())
	if match == nil {
		return nil
	}
	if value, ok := textutil.ParsePrice(match[1] + "," + match[2]); ok {
		return &value
	}
	return nil
}

// extractCategoryLinks is the fallback for pages with no product grid:
// the node has children rather than leaf items. Links are deduplicated
// by slug, preferring the variant that carries a thumbnail, and level
// filtered when the page links the whole taxonomy.
func extractCategoryLinks(doc *goquery.Document, requestedPath string) []scrapers.Category {
	byslug := map[string]scrapers.Category{}
	var order []string

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if i := strings.Index(href, listPrefix); i > 0 {
			href = href[i:]
		}
		if !strings.HasPrefix(href, listPrefix) {
			return
		}
		if i := strings.IndexAny(href, "?#"); i >= 0 {
			href = href[:i]
		}
		href = strings.TrimSuffix(href, "/")

		name := htmlutil.CleanText(a.Text())
		if name == "" {
			name = htmlutil.CleanText(a.Find("img").First().AttrOr("alt", ""))
		}
		if name == "" || len(name) > maxBreadcrumbName {
			return
		}

		image := ""
		if src := imageSrc(a.Find("img").First()); src != "" {
			image = htmlutil.AbsURL(BaseUrl, src)
		}

		existing, dup := byslug[href]
		if dup {
			// keep the thumbnailed variant
			if existing.Image == "" && image != "" {
				existing.Image = image
				byslug[href] = existing
			}
			return
		}

		byslug[href] = scrapers.Category{Name: name, Slug: href, Image: image}
		order = append(order, href)
	})

	var categories []scrapers.Category
	for _, slug := range order {
		categories = append(categories, byslug[slug])
	}

	if len(categories) > categoryFilterThreshold {
		categories = filterCategoryLevel(categories, requestedPath)
	}
	return categories
}

func filterCategoryLevel(categories []scrapers.Category, requestedPath string) []scrapers.Category {
	requestedPath = strings.TrimSuffix(requestedPath, "/")
	atRoot := requestedPath == "" || slugDepth(requestedPath) < topLevelDepth

	var out []scrapers.Category
	for _, c := range categories {
		if atRoot {
			if slugDepth(c.Slug) == topLevelDepth {
				out = append(out, c)
			}
			continue
		}
		if strings.HasPrefix(c.Slug, requestedPath+"/") &&
			slugDepth(c.Slug) == slugDepth(requestedPath)+1 {
			out = append(out, c)
		}
	}
	return out
}

func slugDepth(slug string) int {
	return len(strings.Split(strings.Trim(slug, "/"), "/"))
}
