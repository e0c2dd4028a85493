package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/textutil"
	"wholesale-backend/services/integrations/db"

	"github.com/antzucaro/matchr"
)

// Match scoring weights. Identifier hits dominate word overlap so a
// shared marketing phrase can never outvote a SKU.
var (
	skuMatchScore   = 20
	eanMatchScore   = 15
	sharedWordScore = 2
)

// ProductRef identifies the product being price-compared, lifted from
// the detail page the user is looking at.
type ProductRef struct {
	Sku  string `json:"sku"`
	Ean  string `json:"ean"`
	Name string `json:"name"`
}

type ComparisonRow struct {
	WholesalerID   string   `json:"wholesalerId"`
	WholesalerName string   `json:"wholesalerName"`
	ProductName    string   `json:"productName"`
	Symbol         string   `json:"symbol"`
	PriceNetto     *float64 `json:"priceNetto"`
	Stock          string   `json:"stock"`
	Url            string   `json:"url"`
	Score          int      `json:"score"`
	Best           bool     `json:"best"`
	Worst          bool     `json:"worst"`
}

// compare searches every other active wholesaler of the company for the
// referenced product and returns one row per confident match. Sibling
// failures are isolated: a wholesaler that errors or matches nothing
// simply contributes no row.
func (s *Service) compare(ctx context.Context, companyID, excludeWholesaler string, ref ProductRef) []ComparisonRow {
	ctx, span := tracer.Start(ctx, "compare")
	defer span.End()

	records, err := s.store.ListActiveByCompany(ctx, companyID)
	if err != nil {
		slog.Warn("price comparison aborted, cannot list integrations",
			"company", companyID, "err", err)
		return nil
	}

	// query precedence: the SKU is the sharpest key, the name searches
	// best on sites that don't index identifiers, the EAN still has to
	// work when it is all the reference carries
	query := ref.Sku
	if query == "" {
		query = ref.Name
	}
	if query == "" {
		query = ref.Ean
	}
	if query == "" {
		return nil
	}

	var (
		mu   sync.Mutex
		rows []ComparisonRow
		wg   sync.WaitGroup
	)
	for _, record := range records {
		if record.WholesalerID == excludeWholesaler {
			continue
		}
		connector, ok := s.connectors[record.WholesalerID]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(record db.Integration, connector scrapers.Connector) {
			defer wg.Done()

			jar, _ := s.getSession(ctx, record.ID)
			page, err := connector.Search(ctx, jar, query)
			if err != nil {
				slog.Warn("sibling search failed",
					"wholesaler", record.WholesalerID, "err", err)
				return
			}

			candidate, score, ok := bestMatch(ref, page.Products)
			if !ok {
				return
			}

			link := candidate.Slug
			if link != "" && !strings.HasPrefix(link, "http") {
				link = connector.SiteURL() + link
			}

			mu.Lock()
			rows = append(rows, ComparisonRow{
				WholesalerID:   record.WholesalerID,
				WholesalerName: record.WholesalerName,
				ProductName:    candidate.Name,
				Symbol:         candidate.Symbol,
				PriceNetto:     candidate.PriceNetto,
				Stock:          candidate.Stock,
				Url:            link,
				Score:          score,
			})
			mu.Unlock()
		}(record, connector)
	}
	wg.Wait()

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].WholesalerName < rows[j].WholesalerName
	})
	markBestWorst(rows)
	return rows
}

// bestMatch picks the candidate the scoring function likes most.
// A reference with identifiers that nothing matched is rejected
// outright; accepting a zero-score "match" would show the user a
// confidently wrong price.
func bestMatch(ref ProductRef, candidates []scrapers.Product) (scrapers.Product, int, bool) {
	var best scrapers.Product
	bestScore := -1
	for _, candidate := range candidates {
		score := matchScore(ref, candidate)
		if score < bestScore {
			continue
		}
		if score == bestScore && nameCloseness(ref.Name, candidate.Name) <= nameCloseness(ref.Name, best.Name) {
			continue
		}
		best, bestScore = candidate, score
	}
	if bestScore <= 0 {
		return scrapers.Product{}, 0, false
	}
	return best, bestScore, true
}

func matchScore(ref ProductRef, candidate scrapers.Product) int {
	score := 0

	refSku := strings.ToUpper(strings.TrimSpace(ref.Sku))
	sym := strings.ToUpper(strings.TrimSpace(candidate.Symbol))
	if refSku != "" && sym != "" {
		if sym == refSku || strings.Contains(sym, refSku) || strings.Contains(refSku, sym) {
			score += skuMatchScore
		}
	}

	if ref.Ean != "" {
		if strings.Contains(candidate.Symbol, ref.Ean) || strings.Contains(candidate.Name, ref.Ean) {
			score += eanMatchScore
		}
	}

	candidateWords := map[string]bool{}
	for _, word := range textutil.SignificantWords(candidate.Name) {
		candidateWords[word] = true
	}
	for _, word := range textutil.SignificantWords(ref.Name) {
		if candidateWords[word] {
			score += sharedWordScore
		}
	}
	return score
}

func nameCloseness(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return matchr.JaroWinkler(textutil.NormalizeName(a), textutil.NormalizeName(b), false)
}

// markBestWorst flags the cheapest priced row as best and, when more
// than one priced row exists, the most expensive as worst. Rows without
// a price are never flagged.
func markBestWorst(rows []ComparisonRow) {
	minIdx, maxIdx, priced := -1, -1, 0
	for i := range rows {
		if rows[i].PriceNetto == nil {
			continue
		}
		priced++
		if minIdx == -1 || *rows[i].PriceNetto < *rows[minIdx].PriceNetto {
			minIdx = i
		}
		if maxIdx == -1 || *rows[i].PriceNetto > *rows[maxIdx].PriceNetto {
			maxIdx = i
		}
	}
	if minIdx >= 0 {
		rows[minIdx].Best = true
	}
	if priced > 1 && maxIdx != minIdx {
		rows[maxIdx].Worst = true
	}
}
