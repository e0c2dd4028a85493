package speckable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const productPage = `<html>
<head>
<title>Wiertarka udarowa ProLine 650W - Speckable</title>
<link rel="canonical" href="/pl/product/wiertarka-proline-650w">
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Wiertarka udarowa ProLine 650W",
  "sku": "PRL-650",
  "gtin13": "5901234567890",
  "brand": {"@type": "Brand", "name": "ProLine"},
  "description": "Wiertarka udarowa do zastosowań warsztatowych.",
  "offers": {"@type": "Offer", "price": "199.90", "priceCurrency": "PLN"}
}
</script>
</head>
<body>
<nav class="breadcrumbs">
  <a href="/pl/list/elektronarzedzia">Elektronarzędzia</a>
  <a href="/pl/list/elektronarzedzia/wiertarki">Wiertarki</a>
</nav>
<h1>Wiertarka udarowa ProLine 650W</h1>
<a class="photo-item" href="/pl/photo/prl-650-1.jpg"><img src="/pl/photo/thumb/prl-650-1.jpg"></a>
<a class="photo-item" href="/pl/photo/prl-650-2.jpg"><img src="/pl/photo/thumb/prl-650-2.jpg"></a>
<a class="photo-item" href="/pl/photo/prl-650-1.jpg"><img src="/pl/photo/thumb/prl-650-1.jpg"></a>
<div class="price-brutto"><span class="price-whole">245</span>,<span class="price-decimal">88</span></div>
<div class="stock-internal">12 szt.</div>
<div class="stock-external">dostawa 3 dni</div>
<div class="product-unit">szt.</div>
<div class="product-description">
  <script>trackView()</script>
  <p onmouseover="x()">Solidna <b>wiertarka</b> udarowa.</p>
  <a href="javascript:openModal()">specyfikacja</a>
</div>
<div class="technical-data">
  <ul>
    <li>Moc: 650 W</li>
    <li>Waga: 1,8 kg</li>
    <li>bez dwukropka</li>
  </ul>
</div>
<div class="related-products">
  <div class="product-item">
    <a href="/pl/product/wiertarka-proline-850w"></a>
    <div class="product-name">Wiertarka udarowa ProLine 850W</div>
  </div>
</div>
</body></html>`

func TestParseProductPage(t *testing.T) {
	detail := ParseProductPage(productPage)

	require.Equal(t, "Wiertarka udarowa ProLine 650W", detail.Name)
	require.Equal(t, "PRL-650", detail.Symbol)
	require.Equal(t, "5901234567890", detail.Ean)
	require.Equal(t, "ProLine", detail.Brand)
	require.Equal(t, "PLN", detail.Currency)

	require.NotNil(t, detail.PriceNetto)
	require.InDelta(t, 199.90, *detail.PriceNetto, 1e-9)
	require.NotNil(t, detail.PriceBrutto)
	require.InDelta(t, 245.88, *detail.PriceBrutto, 1e-9)

	require.Equal(t, "12 szt.", detail.StockInternal)
	require.Equal(t, "dostawa 3 dni", detail.StockExternal)
	require.Equal(t, "szt.", detail.Unit)

	require.Equal(t, "/pl/product/wiertarka-proline-650w", detail.Slug)
	require.Equal(t, BaseUrl+"/pl/product/wiertarka-proline-650w", detail.Url)
}

func TestProductPageGallery(t *testing.T) {
	detail := ParseProductPage(productPage)

	// full-resolution anchors win over thumbnails, duplicates dropped
	require.Equal(t, []string{
		BaseUrl + "/pl/photo/prl-650-1.jpg",
		BaseUrl + "/pl/photo/prl-650-2.jpg",
	}, detail.Images)
	require.Equal(t, detail.Images[0], detail.Image)
}

func TestProductPageDescriptionSanitized(t *testing.T) {
	detail := ParseProductPage(productPage)

	require.NotContains(t, detail.DescriptionHtml, "<script")
	require.NotContains(t, detail.DescriptionHtml, "onmouseover")
	require.NotContains(t, detail.DescriptionHtml, "javascript:")
	require.Contains(t, detail.DescriptionHtml, "<b>wiertarka</b>")

	// plain-text description comes from structured data when present
	require.Equal(t, "Wiertarka udarowa do zastosowań warsztatowych.", detail.Description)
}

func TestProductPageSpecs(t *testing.T) {
	detail := ParseProductPage(productPage)

	require.Len(t, detail.Specs, 2)
	require.Equal(t, "Moc", detail.Specs[0].Name)
	require.Equal(t, "650 W", detail.Specs[0].Value)
	require.Equal(t, "Waga", detail.Specs[1].Name)
	require.Equal(t, "1,8 kg", detail.Specs[1].Value)
}

func TestProductPageBreadcrumbAndRelated(t *testing.T) {
	detail := ParseProductPage(productPage)

	require.Len(t, detail.Breadcrumb, 2)
	require.Equal(t, "Wiertarki", detail.Breadcrumb[1].Name)

	require.Len(t, detail.Related, 1)
	require.Equal(t, "/pl/product/wiertarka-proline-850w", detail.Related[0].Slug)
}

func TestParseProductPageIsPure(t *testing.T) {
	first := ParseProductPage(productPage)
	second := ParseProductPage(productPage)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parse is not idempotent (-first +second):\n%s", diff)
	}
}

func TestParseProductPageWithoutStructuredData(t *testing.T) {
	html := `<html><body>
	<h1>Młotek ślusarski 2kg</h1>
	<div class="product-symbol">MLT-2000</div>
	<div class="price-netto"><span class="price-whole">45</span>,<span class="price-decimal">99</span></div>
	</body></html>`

	detail := ParseProductPage(html)
	require.Equal(t, "Młotek ślusarski 2kg", detail.Name)
	require.Equal(t, "MLT-2000", detail.Symbol)
	require.NotNil(t, detail.PriceNetto)
	require.InDelta(t, 45.99, *detail.PriceNetto, 1e-9)
	require.Equal(t, "PLN", detail.Currency)
}

func TestParseProductPageMalformedInput(t *testing.T) {
	require.NotPanics(t, func() {
		ParseProductPage("")
		ParseProductPage("<<<<not html>>>>")
		ParseProductPage(`<script type="application/ld+json">{broken json</script>`)
	})
}

func TestLoginFormClassifier(t *testing.T) {
	loginForm := `<html><body><form action="/pl/login">
	<input name="_token" value="abc"><input name="username"></form></body></html>` +
		"<!-- " + pad(600) + " -->"
	loggedIn := `<html><body><div class="account-menu"><a href="/pl/logout">Wyloguj</a></div></body></html>`

	require.True(t, IsLoginForm(loginForm))
	require.False(t, IsLoginForm(loggedIn))
	require.Equal(t, "abc", extractLoginToken(loginForm))
	require.True(t, hasLoggedInMarkers(loggedIn))
}

func pad(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = 'x'
	}
	return string(out)
}
