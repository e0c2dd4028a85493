// Package catalog is the single-endpoint action router the frontend
// talks to. Every operation arrives as a POST with a JSON body whose
// "action" field selects the handler; responses are flat JSON objects
// and failures travel as an {"error": ...} envelope. Browsing actions
// degrade to empty results instead of failing so a flaky wholesaler
// site never breaks the UI.
package catalog

import (
	"time"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/services/integrations"
	"wholesale-backend/services/integrations/db"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/catalog")

const (
	// how long a persisted session is trusted without probing the site
	sessionFreshness = 30 * time.Minute

	// listing grid size of the wholesaler catalogs; none of them expose
	// an authoritative result count, so pagination is inferred from it
	listingPageSize = 36
)

type Service struct {
	store      integrations.Store
	connectors map[string]scrapers.Connector
	primary    string
	sessions   *expirable.LRU[string, sessionjar.Jar]
	verifier   TokenVerifier

	relayKeySet bool
}

type Options struct {
	Store integrations.Store
	// Connectors registers every wholesaler scraper by its id.
	Connectors []scrapers.Connector
	// Primary names the wholesaler browsing actions default to when the
	// request carries no integration id.
	Primary string
	// Verifier guards the credential actions (login/logout). nil
	// disables the bearer check, which only makes sense in tests and
	// local development.
	Verifier TokenVerifier

	RelayKeySet bool
}

func New(opts Options) *Service {
	connectors := map[string]scrapers.Connector{}
	for _, c := range opts.Connectors {
		connectors[c.WholesalerID()] = c
	}
	return &Service{
		store:       opts.Store,
		connectors:  connectors,
		primary:     opts.Primary,
		sessions:    expirable.NewLRU[string, sessionjar.Jar](256, nil, sessionFreshness),
		verifier:    opts.Verifier,
		relayKeySet: opts.RelayKeySet,
	}
}

// connectorFor resolves the scraper a request should use: the record's
// wholesaler when an integration is bound, the primary catalog
// otherwise. May return nil when the wholesaler id is unknown.
func (s *Service) connectorFor(record *db.Integration) scrapers.Connector {
	if record != nil {
		if c, ok := s.connectors[record.WholesalerID]; ok {
			return c
		}
		return nil
	}
	return s.connectors[s.primary]
}
