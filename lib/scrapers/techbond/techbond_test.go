package techbond

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<table class="results">
<tr class="product-row">
  <td><a href="/produkt/wiertarka-650">Wiertarka udarowa 650W</a></td>
  <td class="symbol">TB-650</td>
  <td class="cena">189,00 zł</td>
  <td class="stan">24 szt.</td>
  <td><img src="/foto/tb-650.jpg"></td>
</tr>
<tr class="product-row">
  <td><a href="/produkt/wiertarka-650">Wiertarka udarowa 650W (duplikat)</a></td>
  <td class="symbol">TB-650</td>
</tr>
<tr class="product-row">
  <td><a href="/o-nas">nie produkt</a></td>
</tr>
</table>
</body></html>`

func TestParseSearchPage(t *testing.T) {
	page := ParseSearchPage(searchPage)

	require.True(t, page.HasProducts)
	require.Len(t, page.Products, 1)

	p := page.Products[0]
	require.Equal(t, "/produkt/wiertarka-650", p.Slug)
	require.Equal(t, "Wiertarka udarowa 650W", p.Name)
	require.Equal(t, "TB-650", p.Symbol)
	require.NotNil(t, p.PriceNetto)
	require.InDelta(t, 189.00, *p.PriceNetto, 1e-9)
	require.Equal(t, "24 szt.", p.Stock)
	require.Equal(t, BaseUrl+"/foto/tb-650.jpg", p.Image)
}

func TestParseSearchPageEmpty(t *testing.T) {
	page := ParseSearchPage("<html><body>brak wyników</body></html>")
	require.False(t, page.HasProducts)
	require.Empty(t, page.Products)
}
