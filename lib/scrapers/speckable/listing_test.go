package speckable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const twoCardListing = `<html>
<head><title>Wiertarki - Speckable</title></head>
<body>
<nav class="breadcrumbs">
  <a href="/pl/list">Katalog</a>
  <a href="/pl/list/elektronarzedzia">Elektronarzędzia</a>
  <a href="/pl/list/elektronarzedzia/wiertarki">Wiertarki</a>
</nav>
<h1>Wiertarki</h1>
<div class="product-item">
  <a href="/pl/product/a"><div class="product-photo"><img src="/pl/img/a.jpg" alt="Wiertarka A"></div></a>
  <div class="product-name">Wiertarka A</div>
  <div class="product-symbol">WRT-A1</div>
  <div class="price"><span class="price-whole">10</span>,<span class="price-decimal">00</span> zł</div>
  <div class="stock-label">dostępny</div>
</div>
<div class="product-item">
  <a href="/pl/product/b"><div class="product-photo"><img src="/pl/img/b.jpg" alt="Wiertarka B"></div></a>
  <div class="product-name">Wiertarka B</div>
  <div class="product-symbol">WRT-B2</div>
  <div class="price"><span class="price-whole">25</span>,<span class="price-decimal">50</span> zł</div>
  <div class="stock-label">na zamówienie</div>
</div>
</body></html>`

func TestParseListPageProducts(t *testing.T) {
	page := ParseListPage(twoCardListing, "/pl/list/elektronarzedzia/wiertarki")

	require.True(t, page.HasProducts)
	require.Len(t, page.Products, 2)
	require.Empty(t, page.Categories)

	require.Equal(t, "Wiertarki", page.Title)
	require.Len(t, page.Breadcrumb, 3)
	require.Equal(t, "Elektronarzędzia", page.Breadcrumb[1].Name)

	a := page.Products[0]
	require.Equal(t, "/pl/product/a", a.Slug)
	require.Equal(t, "Wiertarka A", a.Name)
	require.Equal(t, "WRT-A1", a.Symbol)
	require.NotNil(t, a.PriceNetto)
	require.InDelta(t, 10.00, *a.PriceNetto, 1e-9)
	require.Equal(t, "dostępny", a.Stock)
	require.Equal(t, BaseUrl+"/pl/img/a.jpg", a.Image)

	b := page.Products[1]
	require.Equal(t, "/pl/product/b", b.Slug)
	require.NotNil(t, b.PriceNetto)
	require.InDelta(t, 25.50, *b.PriceNetto, 1e-9)
}

func TestParseListPageIsPure(t *testing.T) {
	first := ParseListPage(twoCardListing, "/pl/list/elektronarzedzia/wiertarki")
	second := ParseListPage(twoCardListing, "/pl/list/elektronarzedzia/wiertarki")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parse is not idempotent (-first +second):\n%s", diff)
	}
}

func TestParseListPageDedupesBySlug(t *testing.T) {
	card := `<div class="product-item">
	  <a href="/pl/product/dup"></a>
	  <div class="product-name">Duplikat</div>
	</div>`
	html := "<html><body>" + strings.Repeat(card, 3) + "</body></html>"

	page := ParseListPage(html, "/pl/list/x")
	require.True(t, page.HasProducts)
	require.Len(t, page.Products, 1)
}

func TestParseListPageSkipsCardsWithoutLink(t *testing.T) {
	html := `<html><body>
	<div class="product-item"><div class="product-name">Bez linku</div></div>
	<div class="product-item"><a href="/pl/product/ok"></a><div class="product-name">Z linkiem</div></div>
	</body></html>`

	page := ParseListPage(html, "/pl/list/x")
	require.Len(t, page.Products, 1)
	require.Equal(t, "/pl/product/ok", page.Products[0].Slug)
}

func TestParseListPageCategoryFallback(t *testing.T) {
	html := `<html><body>
	<a href="/pl/list/narzedzia-reczne/mlotki">Młotki</a>
	<a href="/pl/list/narzedzia-reczne/klucze">Klucze</a>
	<a href="/pl/list/narzedzia-reczne/wkretaki">Wkrętaki</a>
	<a href="/pl/list/narzedzia-reczne/pilki">Piłki</a>
	<a href="/pl/list/narzedzia-reczne/szczypce">Szczypce</a>
	</body></html>`

	page := ParseListPage(html, "/pl/list/narzedzia-reczne")
	require.False(t, page.HasProducts)
	require.Empty(t, page.Products)
	require.Len(t, page.Categories, 5)
	require.Equal(t, "/pl/list/narzedzia-reczne/mlotki", page.Categories[0].Slug)
}

func TestCategoryFallbackPrefersThumbnailedVariant(t *testing.T) {
	html := `<html><body>
	<a href="/pl/list/ogrod-zielen">Ogród</a>
	<a href="/pl/list/ogrod-zielen"><img src="/pl/img/ogrod.jpg" alt="Ogród"></a>
	</body></html>`

	page := ParseListPage(html, "/pl/list")
	require.Len(t, page.Categories, 1)
	require.Equal(t, BaseUrl+"/pl/img/ogrod.jpg", page.Categories[0].Image)
}

func TestCategoryLevelFilterAtRoot(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	// a site-map sized link dump: top-level and nested nodes mixed
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<a href="/pl/list/kategoria-%d">Kategoria %d</a>`, i, i)
		fmt.Fprintf(&b, `<a href="/pl/list/kategoria-%d/pod">Pod %d</a>`, i, i)
	}
	b.WriteString("</body></html>")

	page := ParseListPage(b.String(), "/pl/list")
	require.False(t, page.HasProducts)
	require.Len(t, page.Categories, 15)
	for _, c := range page.Categories {
		require.Equal(t, 3, slugDepth(c.Slug), "slug %s", c.Slug)
	}
}

func TestCategoryLevelFilterBelowRoot(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, `<a href="/pl/list/inne-%d">Inne %d</a>`, i, i)
	}
	b.WriteString(`<a href="/pl/list/elektronarzedzia/wiertarki">Wiertarki</a>`)
	b.WriteString(`<a href="/pl/list/elektronarzedzia/szlifierki">Szlifierki</a>`)
	b.WriteString(`<a href="/pl/list/elektronarzedzia/wiertarki/udarowe">Udarowe</a>`)
	b.WriteString("</body></html>")

	page := ParseListPage(b.String(), "/pl/list/elektronarzedzia")
	require.Len(t, page.Categories, 2)
	for _, c := range page.Categories {
		require.True(t, strings.HasPrefix(c.Slug, "/pl/list/elektronarzedzia/"))
	}
}

func TestDiscriminatedUnionConsistency(t *testing.T) {
	products := ParseListPage(twoCardListing, "/pl/list/elektronarzedzia/wiertarki")
	require.True(t, products.HasProducts)
	for _, p := range products.Products {
		require.True(t, strings.HasPrefix(p.Slug, "/pl/product/"))
	}

	categories := ParseListPage(`<html><body><a href="/pl/list/a">A</a></body></html>`, "/pl/list")
	require.False(t, categories.HasProducts)
	for _, c := range categories.Categories {
		require.False(t, strings.HasPrefix(c.Slug, "/pl/product/"))
	}
}

func TestParseListPageUnrecognizableMarkup(t *testing.T) {
	page := ParseListPage("<html><body><p>nic tu nie ma</p></body></html>", "/pl/list")
	require.False(t, page.HasProducts)
	require.Empty(t, page.Products)
	require.Empty(t, page.Categories)
}

func TestTitleFallsBackToPageTitle(t *testing.T) {
	page := ParseListPage(`<html><head><title>Młotki - Speckable</title></head><body></body></html>`, "/pl/list")
	require.Equal(t, "Młotki", page.Title)
}
