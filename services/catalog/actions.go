package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/services/integrations"
	"wholesale-backend/services/integrations/db"
)

// User-facing degradation message. Browsing actions answer 200 with
// empty results and this string instead of surfacing transport errors.
const siteUnavailableMsg = "wholesaler site temporarily unavailable"

type productsRequest struct {
	IntegrationID string `json:"integrationId"`
	Category      string `json:"cat"`
	Page          int    `json:"page"`
}

type productsResponse struct {
	Title         string              `json:"title"`
	Breadcrumb    []scrapers.Category `json:"breadcrumb"`
	Products      []scrapers.Product  `json:"products"`
	Categories    []scrapers.Category `json:"categories"`
	HasProducts   bool                `json:"hasProducts"`
	Page          int                 `json:"page"`
	TotalPages    int                 `json:"totalPages"`
	TotalProducts int                 `json:"totalProducts"`
	Error         string              `json:"error,omitempty"`
}

func (s *Service) handleProducts(ctx context.Context, w http.ResponseWriter, req productsRequest) {
	page := req.Page
	if page < 1 {
		page = 1
	}

	jar, record := s.getSession(ctx, req.IntegrationID)
	connector := s.connectorFor(record)
	if connector == nil {
		writeJSON(w, http.StatusOK, emptyProductsResponse(page, "unknown wholesaler"))
		return
	}

	result, err := connector.ListProducts(ctx, jar, req.Category, page)

	// The session can expire between the freshness check and the fetch.
	// One re-login, one retry; a second login wall means the stored
	// credentials no longer work and degradation takes over.
	if err == nil && result.LoginWall && record != nil {
		if fresh := s.forceRelogin(ctx, *record, connector); fresh != nil {
			result, err = connector.ListProducts(ctx, fresh, req.Category, page)
		}
	}
	if err != nil {
		slog.Warn("listing fetch failed", "category", req.Category, "err", err)
		writeJSON(w, http.StatusOK, emptyProductsResponse(page, siteUnavailableMsg))
		return
	}

	resp := productsResponse{
		Title:         result.Title,
		Breadcrumb:    result.Breadcrumb,
		Products:      result.Products,
		Categories:    result.Categories,
		HasProducts:   result.HasProducts,
		Page:          page,
		TotalPages:    page,
		TotalProducts: (page-1)*listingPageSize + len(result.Products),
	}
	// A full grid implies at least one more page. The sites expose no
	// authoritative total, so pagination is inferred one page ahead.
	if result.HasProducts && len(result.Products) == listingPageSize {
		resp.TotalPages = page + 1
	}
	if resp.Products == nil {
		resp.Products = []scrapers.Product{}
	}
	if resp.Categories == nil {
		resp.Categories = []scrapers.Category{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Degraded listing responses still carry empty arrays, never nulls, so
// the frontend can render them without special cases.
func emptyProductsResponse(page int, message string) productsResponse {
	return productsResponse{
		Products:   []scrapers.Product{},
		Categories: []scrapers.Category{},
		Page:       page,
		TotalPages: page,
		Error:      message,
	}
}

type searchRequest struct {
	IntegrationID string `json:"integrationId"`
	Query         string `json:"q"`
}

type searchResponse struct {
	Query       string             `json:"query"`
	Products    []scrapers.Product `json:"products"`
	Total       int                `json:"total"`
	HasProducts bool               `json:"hasProducts"`
	Error       string             `json:"error,omitempty"`
}

func (s *Service) handleSearch(ctx context.Context, w http.ResponseWriter, req searchRequest) {
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	jar, record := s.getSession(ctx, req.IntegrationID)
	connector := s.connectorFor(record)
	if connector == nil {
		writeJSON(w, http.StatusOK, searchResponse{
			Query: req.Query, Products: []scrapers.Product{}, Error: "unknown wholesaler",
		})
		return
	}

	result, err := connector.Search(ctx, jar, req.Query)
	if err != nil {
		slog.Warn("search fetch failed", "query", req.Query, "err", err)
		writeJSON(w, http.StatusOK, searchResponse{
			Query: req.Query, Products: []scrapers.Product{}, Error: siteUnavailableMsg,
		})
		return
	}

	products := result.Products
	if products == nil {
		products = []scrapers.Product{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:       req.Query,
		Products:    products,
		Total:       len(products),
		HasProducts: result.HasProducts,
	})
}

type productRequest struct {
	IntegrationID string `json:"integrationId"`
	Slug          string `json:"slug"`
}

type productResponse struct {
	Product scrapers.ProductDetail `json:"product"`
	Error   string                 `json:"error,omitempty"`
}

func (s *Service) handleProduct(ctx context.Context, w http.ResponseWriter, req productRequest) {
	if req.Slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}

	jar, record := s.getSession(ctx, req.IntegrationID)
	connector := s.connectorFor(record)
	if connector == nil {
		writeJSON(w, http.StatusOK, productResponse{Error: "unknown wholesaler"})
		return
	}

	detail, err := connector.GetProduct(ctx, jar, req.Slug)
	if err != nil {
		slog.Warn("product fetch failed", "slug", req.Slug, "err", err)
		writeJSON(w, http.StatusOK, productResponse{Error: siteUnavailableMsg})
		return
	}

	writeJSON(w, http.StatusOK, productResponse{Product: detail})
}

type compareRequest struct {
	IntegrationID string `json:"integrationId"`
	Sku           string `json:"sku"`
	Ean           string `json:"ean"`
	Name          string `json:"name"`
}

type compareResponse struct {
	Rows  []ComparisonRow `json:"rows"`
	Total int             `json:"total"`
}

// handleCompare searches the company's other wholesalers for the same
// product. The anchor integration supplies the company scope and is
// itself excluded from the sweep.
func (s *Service) handleCompare(ctx context.Context, w http.ResponseWriter, req compareRequest) {
	if req.Sku == "" && req.Ean == "" && req.Name == "" {
		writeError(w, http.StatusBadRequest, "sku, ean or name is required")
		return
	}

	record, err := s.store.Get(ctx, req.IntegrationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown integration")
		return
	}

	rows := s.compare(ctx, record.CompanyID, record.WholesalerID, ProductRef{
		Sku:  req.Sku,
		Ean:  req.Ean,
		Name: req.Name,
	})
	if rows == nil {
		rows = []ComparisonRow{}
	}
	writeJSON(w, http.StatusOK, compareResponse{Rows: rows, Total: len(rows)})
}

type categoriesRequest struct {
	IntegrationID string `json:"integrationId"`
}

type categoriesResponse struct {
	Categories []scrapers.Category `json:"categories"`
	Total      int                 `json:"total"`
}

func (s *Service) handleCategories(ctx context.Context, w http.ResponseWriter, req categoriesRequest) {
	var record *db.Integration
	if req.IntegrationID != "" {
		if row, err := s.store.Get(ctx, req.IntegrationID); err == nil {
			record = &row
		}
	}

	connector := s.connectorFor(record)
	if connector == nil {
		writeJSON(w, http.StatusOK, categoriesResponse{})
		return
	}

	categories := connector.Categories()
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories: categories,
		Total:      len(categories),
	})
}

type sessionRequest struct {
	IntegrationID string `json:"integrationId"`
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	WholesalerID  string `json:"wholesalerId,omitempty"`
}

func (s *Service) handleSession(ctx context.Context, w http.ResponseWriter, req sessionRequest) {
	jar, record := s.getSession(ctx, req.IntegrationID)
	if record == nil {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	connector := s.connectorFor(record)
	authenticated := !jar.Empty() || (connector != nil && browsesCookieless(connector))

	resp := sessionResponse{
		Authenticated: authenticated,
		WholesalerID:  record.WholesalerID,
	}
	if authenticated {
		resp.Username = record.Username
	}
	writeJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	CompanyID      string `json:"companyId"`
	WholesalerID   string `json:"wholesalerId"`
	WholesalerName string `json:"wholesalerName"`
	Branza         string `json:"branza"`
	// ExistingIntegrationID re-logs an existing record in place instead
	// of creating a duplicate.
	ExistingIntegrationID string `json:"existingIntegrationId"`
}

type loginResponse struct {
	Success       bool   `json:"success"`
	IntegrationID string `json:"integrationId"`
	Username      string `json:"username"`
	WholesalerID  string `json:"wholesalerId"`
}

func (s *Service) handleLogin(ctx context.Context, w http.ResponseWriter, req loginRequest) {
	if req.Username == "" || req.Password == "" || req.CompanyID == "" || req.WholesalerID == "" {
		writeError(w, http.StatusBadRequest, "username, password, companyId and wholesalerId are required")
		return
	}

	connector, ok := s.connectors[req.WholesalerID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown wholesaler "+req.WholesalerID)
		return
	}

	jar, err := connector.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	name := req.WholesalerName
	if name == "" {
		name = req.WholesalerID
	}
	record, err := s.store.Create(ctx, integrations.CreateParams{
		CompanyID:      req.CompanyID,
		WholesalerID:   req.WholesalerID,
		WholesalerName: name,
		Branza:         req.Branza,
		Username:       req.Username,
		Password:       req.Password,
		Jar:            jar,
		ExistingID:     req.ExistingIntegrationID,
	})
	if err != nil {
		slog.Error("failed to persist integration", "wholesaler", req.WholesalerID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to persist integration")
		return
	}

	s.sessions.Add(record.ID, jar.Clone())
	writeJSON(w, http.StatusOK, loginResponse{
		Success:       true,
		IntegrationID: record.ID,
		Username:      record.Username,
		WholesalerID:  record.WholesalerID,
	})
}

type logoutRequest struct {
	IntegrationID string `json:"integrationId"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

// handleLogout forgets the credential bundle outright, cookies and all.
func (s *Service) handleLogout(ctx context.Context, w http.ResponseWriter, req logoutRequest) {
	if req.IntegrationID == "" {
		writeError(w, http.StatusBadRequest, "integrationId is required")
		return
	}

	s.sessions.Remove(req.IntegrationID)
	if err := s.store.Delete(ctx, req.IntegrationID); err != nil {
		slog.Error("failed to delete integration", "integration", req.IntegrationID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete integration")
		return
	}
	writeJSON(w, http.StatusOK, logoutResponse{Success: true})
}

type debugRequest struct{}

type debugResponse struct {
	ScraperApiKeySet bool              `json:"scraperApiKeySet"`
	Wholesalers      []string          `json:"wholesalers"`
	Tests            map[string]string `json:"tests"`
}

func (s *Service) handleDebug(ctx context.Context, w http.ResponseWriter, _ debugRequest) {
	tests := map[string]string{}

	_, err := s.store.Get(ctx, "debug-probe")
	if err == nil || errors.Is(err, integrations.ErrNotFound) {
		tests["db"] = "ok"
	} else {
		tests["db"] = err.Error()
	}

	var wholesalers []string
	for id := range s.connectors {
		wholesalers = append(wholesalers, id)
	}
	sort.Strings(wholesalers)

	writeJSON(w, http.StatusOK, debugResponse{
		ScraperApiKeySet: s.relayKeySet,
		Wholesalers:      wholesalers,
		Tests:            tests,
	})
}
