package catalog

import (
	"context"
	"log/slog"
	"time"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/services/integrations/db"
)

type cookielessBrowser interface {
	CookielessCapable() bool
}

func browsesCookieless(c scrapers.Connector) bool {
	capable, ok := c.(cookielessBrowser)
	return ok && capable.CookielessCapable()
}

// getSession resolves the cookie jar a browsing action should present.
// It never fails: every degradation path hands back an empty jar, which
// trades authenticated prices for availability. The returned record is
// nil when no integration is bound to the request.
//
// Resolution order: in-memory cache, persisted jar inside the freshness
// window, persisted jar revalidated by a live probe, full re-login from
// stored credentials, empty jar.
func (s *Service) getSession(ctx context.Context, integrationID string) (sessionjar.Jar, *db.Integration) {
	ctx, span := tracer.Start(ctx, "getSession")
	defer span.End()

	if integrationID == "" {
		return sessionjar.New(), nil
	}

	record, err := s.store.Get(ctx, integrationID)
	if err != nil {
		slog.Warn("unknown integration, browsing anonymously",
			"integration", integrationID, "err", err)
		return sessionjar.New(), nil
	}

	connector := s.connectorFor(&record)
	if connector == nil {
		slog.Warn("no connector for wholesaler, browsing anonymously",
			"wholesaler", record.WholesalerID)
		return sessionjar.New(), &record
	}

	// The relay executes from egress points the site tolerates, so the
	// whole session dance is moot for browsing.
	if browsesCookieless(connector) {
		return sessionjar.New(), &record
	}

	if cached, ok := s.sessions.Get(record.ID); ok {
		return cached.Clone(), &record
	}

	jar, err := sessionjar.Parse(record.Cookies)
	if err != nil {
		jar = sessionjar.New()
	}

	if !jar.Empty() && time.Since(time.Unix(record.LastRefresh, 0)) < sessionFreshness {
		s.sessions.Add(record.ID, jar.Clone())
		return jar, &record
	}

	if !jar.Empty() {
		valid, err := connector.CheckSession(ctx, jar)
		if err != nil {
			slog.Warn("session probe failed", "integration", record.ID, "err", err)
		}
		if err == nil && valid {
			if err := s.store.UpdateSession(ctx, record.ID, jar, time.Now()); err != nil {
				slog.Warn("failed to persist revalidated session", "integration", record.ID, "err", err)
			}
			s.sessions.Add(record.ID, jar.Clone())
			return jar, &record
		}
	}

	if fresh := s.relogin(ctx, record, connector); fresh != nil {
		return fresh, &record
	}
	return sessionjar.New(), &record
}

// relogin re-derives a session from stored credentials and persists the
// result. nil means the attempt failed and the caller should degrade to
// anonymous browsing.
func (s *Service) relogin(ctx context.Context, record db.Integration, connector scrapers.Connector) sessionjar.Jar {
	if record.Username == "" || record.Password == "" {
		return nil
	}

	jar, err := connector.Login(ctx, record.Username, record.Password)
	if err != nil {
		slog.Warn("re-login failed",
			"integration", record.ID, "wholesaler", record.WholesalerID, "err", err)
		return nil
	}

	if err := s.store.UpdateSession(ctx, record.ID, jar, time.Now()); err != nil {
		slog.Warn("failed to persist refreshed session", "integration", record.ID, "err", err)
	}
	s.sessions.Add(record.ID, jar.Clone())
	return jar
}

// forceRelogin drops whatever cached session exists and logs in again.
// Used when a fetched page turned out to be the login form even though
// the session looked valid moments before.
func (s *Service) forceRelogin(ctx context.Context, record db.Integration, connector scrapers.Connector) sessionjar.Jar {
	s.sessions.Remove(record.ID)
	return s.relogin(ctx, record, connector)
}
