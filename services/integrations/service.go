// Package integrations persists per-tenant wholesaler credential
// bundles: username/password, the serialized cookie jar and its last
// refresh time. This is the only durable state the catalog core owns.
package integrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"wholesale-backend/lib/sessionjar"
	"wholesale-backend/services/integrations/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/integrations")

var ErrNotFound = fmt.Errorf("integration not found")

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Init applies the schema. Safe to call on every start.
func (s Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

type CreateParams struct {
	CompanyID      string
	WholesalerID   string
	WholesalerName string
	Branza         string
	Username       string
	Password       string
	Jar            sessionjar.Jar
	// ExistingID reuses a record id so a re-login overwrites the old
	// credential bundle instead of orphaning it.
	ExistingID string
}

func (s Store) Create(ctx context.Context, arg CreateParams) (db.Integration, error) {
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()
	span.SetAttributes(attribute.String("wholesaler", arg.WholesalerID))

	id := arg.ExistingID
	if id == "" {
		id = uuid.NewString()
	}

	cookies, err := arg.Jar.Serialize()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize jar")
		return db.Integration{}, err
	}

	err = s.qry.CreateIntegration(ctx, db.CreateIntegrationParams{
		ID:             id,
		CompanyID:      arg.CompanyID,
		WholesalerID:   arg.WholesalerID,
		WholesalerName: arg.WholesalerName,
		Branza:         arg.Branza,
		Username:       arg.Username,
		Password:       arg.Password,
		Cookies:        cookies,
		LastRefresh:    time.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist integration")
		return db.Integration{}, err
	}

	return s.qry.GetIntegration(ctx, id)
}

func (s Store) Get(ctx context.Context, id string) (db.Integration, error) {
	row, err := s.qry.GetIntegration(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Integration{}, ErrNotFound
	}
	return row, err
}

// UpdateSession rewrites the cookie bundle after a probe or re-login.
// Last-write-wins is acceptable here: re-deriving a session from the
// same credentials is idempotent, so two racing refreshes are safe.
func (s Store) UpdateSession(ctx context.Context, id string, jar sessionjar.Jar, refreshedAt time.Time) error {
	cookies, err := jar.Serialize()
	if err != nil {
		return err
	}
	return s.qry.UpdateIntegrationSession(ctx, db.UpdateIntegrationSessionParams{
		Cookies:     cookies,
		LastRefresh: refreshedAt.Unix(),
		ID:          id,
	})
}

func (s Store) Deactivate(ctx context.Context, id string) error {
	return s.qry.DeactivateIntegration(ctx, id)
}

// Delete forgets the credential outright. Logout means "forget this
// credential", not "clear the cookies".
func (s Store) Delete(ctx context.Context, id string) error {
	return s.qry.DeleteIntegration(ctx, id)
}

// ListActiveByCompany returns at most one integration per wholesaler:
// when duplicates exist the most recently refreshed active row wins.
func (s Store) ListActiveByCompany(ctx context.Context, companyID string) ([]db.Integration, error) {
	rows, err := s.qry.ListActiveIntegrationsByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	var out []db.Integration
	seen := map[string]struct{}{}
	for _, row := range rows {
		if _, dup := seen[row.WholesalerID]; dup {
			continue
		}
		seen[row.WholesalerID] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}
