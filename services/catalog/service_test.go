package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/services/integrations"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// stubConnector scripts a wholesaler without touching the network.
type stubConnector struct {
	id   string
	site string

	loginJar sessionjar.Jar
	loginErr error
	logins   int

	checkOK bool
	checks  int

	listFn       func(page int) (scrapers.ListPage, error)
	lists        int
	lastCategory string
	searchFn     func(query string) (scrapers.ListPage, error)
	lastQuery    string

	detail    scrapers.ProductDetail
	detailErr error

	categories []scrapers.Category
	cookieless bool
}

func (c *stubConnector) WholesalerID() string { return c.id }

func (c *stubConnector) SiteURL() string {
	if c.site == "" {
		return "https://stub.example"
	}
	return c.site
}

func (c *stubConnector) CookielessCapable() bool { return c.cookieless }

func (c *stubConnector) Login(context.Context, string, string) (sessionjar.Jar, error) {
	c.logins++
	if c.loginErr != nil {
		return nil, c.loginErr
	}
	if c.loginJar == nil {
		return sessionjar.Jar{"sid": "stub"}, nil
	}
	return c.loginJar.Clone(), nil
}

func (c *stubConnector) CheckSession(context.Context, sessionjar.Jar) (bool, error) {
	c.checks++
	return c.checkOK, nil
}

func (c *stubConnector) Categories() []scrapers.Category { return c.categories }

func (c *stubConnector) ListProducts(_ context.Context, _ sessionjar.Jar, categorySlug string, page int) (scrapers.ListPage, error) {
	c.lists++
	c.lastCategory = categorySlug
	if c.listFn == nil {
		return scrapers.ListPage{}, nil
	}
	return c.listFn(page)
}

func (c *stubConnector) Search(_ context.Context, _ sessionjar.Jar, query string) (scrapers.ListPage, error) {
	c.lastQuery = query
	if c.searchFn == nil {
		return scrapers.ListPage{}, nil
	}
	return c.searchFn(query)
}

func (c *stubConnector) GetProduct(context.Context, sessionjar.Jar, string) (scrapers.ProductDetail, error) {
	return c.detail, c.detailErr
}

func newTestService(t testing.TB, opts Options) (*Service, integrations.Store) {
	database, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	store := integrations.NewStore(database)
	require.NoError(t, store.Init(context.Background()))

	opts.Store = store
	if opts.Primary == "" && len(opts.Connectors) > 0 {
		opts.Primary = opts.Connectors[0].WholesalerID()
	}
	return New(opts), store
}

func post(t testing.TB, handler http.Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func seedIntegration(t testing.TB, store integrations.Store, wholesaler string, jar sessionjar.Jar) string {
	record, err := store.Create(context.Background(), integrations.CreateParams{
		CompanyID:      "firma-1",
		WholesalerID:   wholesaler,
		WholesalerName: wholesaler,
		Username:       "alice",
		Password:       "secret",
		Jar:            jar,
	})
	require.NoError(t, err)
	return record.ID
}

func gridOf(n int) []scrapers.Product {
	products := make([]scrapers.Product, n)
	for i := range products {
		products[i] = scrapers.Product{
			Name: fmt.Sprintf("Produkt %d", i),
			Slug: fmt.Sprintf("/pl/product/p-%d", i),
		}
	}
	return products
}

func TestPreflightAndUnknownAction(t *testing.T) {
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{&stubConnector{id: "stub"}}})
	handler := svc.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, body := post(t, handler, `{"action":"frobnicate"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["error"], "unknown action")
}

func TestProductsDegradesWhenSiteDown(t *testing.T) {
	stub := &stubConnector{
		id: "stub",
		listFn: func(int) (scrapers.ListPage, error) {
			return scrapers.ListPage{}, fmt.Errorf("tls handshake timeout")
		},
	}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	rec, body := post(t, svc.Handler(), `{"action":"products","cat":"narzedzia"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["hasProducts"])
	require.Equal(t, siteUnavailableMsg, body["error"])
	// degraded responses carry empty arrays, never nulls
	require.Equal(t, []any{}, body["products"])
	require.Equal(t, []any{}, body["categories"])
}

func TestSearchDegradesWithEmptyArray(t *testing.T) {
	stub := &stubConnector{
		id: "stub",
		searchFn: func(string) (scrapers.ListPage, error) {
			return scrapers.ListPage{}, fmt.Errorf("connection refused")
		},
	}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	rec, body := post(t, svc.Handler(), `{"action":"search","q":"wiertarka"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, siteUnavailableMsg, body["error"])
	require.Equal(t, []any{}, body["products"])
}

func TestWireParamNames(t *testing.T) {
	stub := &stubConnector{id: "stub"}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})
	handler := svc.Handler()

	_, _ = post(t, handler, `{"action":"products","cat":"/pl/list/narzedzia"}`, nil)
	require.Equal(t, "/pl/list/narzedzia", stub.lastCategory)

	_, _ = post(t, handler, `{"action":"search","q":"wiertarka"}`, nil)
	require.Equal(t, "wiertarka", stub.lastQuery)

	_, body := post(t, handler,
		`{"action":"login","username":"alice","password":"pw","companyId":"firma-1","wholesalerId":"stub"}`, nil)
	id, ok := body["integrationId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	// a re-login naming the existing record keeps its id
	_, body = post(t, handler, fmt.Sprintf(
		`{"action":"login","username":"alice","password":"pw","companyId":"firma-1","wholesalerId":"stub","existingIntegrationId":%q}`, id), nil)
	require.Equal(t, id, body["integrationId"])
}

func TestProductsPaginationHeuristic(t *testing.T) {
	pageContents := map[int][]scrapers.Product{
		1: gridOf(listingPageSize),
		2: gridOf(5),
	}
	stub := &stubConnector{
		id: "stub",
		listFn: func(page int) (scrapers.ListPage, error) {
			return scrapers.ListPage{Products: pageContents[page], HasProducts: true}, nil
		},
	}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})
	handler := svc.Handler()

	_, body := post(t, handler, `{"action":"products","cat":"narzedzia","page":1}`, nil)
	require.Equal(t, float64(2), body["totalPages"])
	require.Equal(t, float64(listingPageSize), body["totalProducts"])

	_, body = post(t, handler, `{"action":"products","cat":"narzedzia","page":2}`, nil)
	require.Equal(t, float64(2), body["totalPages"])
	require.Equal(t, float64(listingPageSize+5), body["totalProducts"])
}

func TestProductsReloginOnLoginWall(t *testing.T) {
	walled := true
	stub := &stubConnector{
		id:       "stub",
		loginJar: sessionjar.Jar{"sid": "fresh"},
		listFn: func(int) (scrapers.ListPage, error) {
			if walled {
				walled = false
				return scrapers.ListPage{LoginWall: true}, nil
			}
			return scrapers.ListPage{Products: gridOf(3), HasProducts: true}, nil
		},
	}
	svc, store := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})
	id := seedIntegration(t, store, "stub", sessionjar.Jar{"sid": "stale"})

	_, body := post(t, svc.Handler(),
		fmt.Sprintf(`{"action":"products","integrationId":%q,"cat":"narzedzia"}`, id), nil)

	require.Equal(t, 1, stub.logins)
	require.Equal(t, 2, stub.lists)
	require.Equal(t, true, body["hasProducts"])
	require.Empty(t, body["error"])
}

func TestSessionFreshnessSkipsProbe(t *testing.T) {
	stub := &stubConnector{id: "stub", checkOK: true}
	svc, store := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	// Created just now: inside the trust window, no probe expected.
	fresh := seedIntegration(t, store, "stub", sessionjar.Jar{"sid": "a"})
	_, body := post(t, svc.Handler(), fmt.Sprintf(`{"action":"session","integrationId":%q}`, fresh), nil)
	require.Equal(t, true, body["authenticated"])
	require.Equal(t, "alice", body["username"])
	require.Equal(t, 0, stub.checks)

	// Aged past the window: the jar must be revalidated against the site.
	stale := seedIntegration(t, store, "stub", sessionjar.Jar{"sid": "b"})
	require.NoError(t, store.UpdateSession(context.Background(), stale,
		sessionjar.Jar{"sid": "b"}, time.Now().Add(-time.Hour)))

	_, body = post(t, svc.Handler(), fmt.Sprintf(`{"action":"session","integrationId":%q}`, stale), nil)
	require.Equal(t, true, body["authenticated"])
	require.Equal(t, 1, stub.checks)
}

func TestSessionDegradesToAnonymous(t *testing.T) {
	stub := &stubConnector{
		id:       "stub",
		checkOK:  false,
		loginErr: fmt.Errorf("credentials rejected"),
	}
	svc, store := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	id := seedIntegration(t, store, "stub", sessionjar.Jar{"sid": "dead"})
	require.NoError(t, store.UpdateSession(context.Background(), id,
		sessionjar.Jar{"sid": "dead"}, time.Now().Add(-time.Hour)))

	rec, body := post(t, svc.Handler(), fmt.Sprintf(`{"action":"session","integrationId":%q}`, id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["authenticated"])
	require.Equal(t, 1, stub.logins)
}

func TestCookielessSkipsSessionDance(t *testing.T) {
	stub := &stubConnector{id: "stub", cookieless: true}
	svc, store := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})
	id := seedIntegration(t, store, "stub", sessionjar.New())

	_, body := post(t, svc.Handler(), fmt.Sprintf(`{"action":"session","integrationId":%q}`, id), nil)
	require.Equal(t, true, body["authenticated"])
	require.Equal(t, 0, stub.checks)
	require.Equal(t, 0, stub.logins)
}

func TestLoginRequiresBearer(t *testing.T) {
	stub := &stubConnector{id: "stub"}
	svc, _ := newTestService(t, Options{
		Connectors: []scrapers.Connector{stub},
		Verifier:   StaticVerifier("sekret"),
	})
	handler := svc.Handler()

	login := `{"action":"login","username":"alice","password":"pw","companyId":"firma-1","wholesalerId":"stub"}`

	rec, _ := post(t, handler, login, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := post(t, handler, login, map[string]string{"Authorization": "Bearer sekret"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["integrationId"])

	// Browsing stays open even with a verifier configured.
	rec, _ = post(t, handler, `{"action":"categories"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectedCredentials(t *testing.T) {
	stub := &stubConnector{id: "stub", loginErr: fmt.Errorf("credentials rejected")}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	rec, body := post(t, svc.Handler(),
		`{"action":"login","username":"alice","password":"bad","companyId":"firma-1","wholesalerId":"stub"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, body["error"], "rejected")
}

func TestLogoutForgetsCredential(t *testing.T) {
	stub := &stubConnector{id: "stub"}
	svc, store := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})
	id := seedIntegration(t, store, "stub", sessionjar.Jar{"sid": "a"})

	rec, body := post(t, svc.Handler(), fmt.Sprintf(`{"action":"logout","integrationId":%q}`, id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])

	_, err := store.Get(context.Background(), id)
	require.ErrorIs(t, err, integrations.ErrNotFound)
}

func TestDebugReportsHealth(t *testing.T) {
	svc, _ := newTestService(t, Options{
		Connectors: []scrapers.Connector{
			&stubConnector{id: "stub-b"},
			&stubConnector{id: "stub-a"},
		},
		Primary:     "stub-a",
		RelayKeySet: true,
	})

	rec, body := post(t, svc.Handler(), `{"action":"debug"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["scraperApiKeySet"])
	require.Equal(t, []any{"stub-a", "stub-b"}, body["wholesalers"])

	tests, ok := body["tests"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ok", tests["db"])
}

func TestCategoriesFromPrimary(t *testing.T) {
	stub := &stubConnector{
		id: "stub",
		categories: []scrapers.Category{
			{Name: "Narzędzia ręczne", Slug: "/pl/list/narzedzia-reczne"},
			{Name: "Elektronarzędzia", Slug: "/pl/list/elektronarzedzia"},
		},
	}
	svc, _ := newTestService(t, Options{Connectors: []scrapers.Connector{stub}})

	_, body := post(t, svc.Handler(), `{"action":"categories"}`, nil)
	require.Equal(t, float64(2), body["total"])
}
