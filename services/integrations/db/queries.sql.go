package db

import (
	"context"
)

const createIntegration = `-- name: CreateIntegration :exec
INSERT INTO integrations (
    id, company_id, wholesaler_id, wholesaler_name, branza,
    username, password, cookies, last_refresh, is_active
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT (id) DO UPDATE SET
    username = excluded.username,
    password = excluded.password,
    cookies = excluded.cookies,
    last_refresh = excluded.last_refresh,
    is_active = 1
`

type CreateIntegrationParams struct {
	ID             string
	CompanyID      string
	WholesalerID   string
	WholesalerName string
	Branza         string
	Username       string
	Password       string
	Cookies        string
	LastRefresh    int64
}

func (q *Queries) CreateIntegration(ctx context.Context, arg CreateIntegrationParams) error {
	_, err := q.db.ExecContext(ctx, createIntegration,
		arg.ID,
		arg.CompanyID,
		arg.WholesalerID,
		arg.WholesalerName,
		arg.Branza,
		arg.Username,
		arg.Password,
		arg.Cookies,
		arg.LastRefresh,
	)
	return err
}

const getIntegration = `-- name: GetIntegration :one
SELECT id, company_id, wholesaler_id, wholesaler_name, branza,
       username, password, cookies, last_refresh, is_active
FROM integrations
WHERE id = ?
`

func (q *Queries) GetIntegration(ctx context.Context, id string) (Integration, error) {
	row := q.db.QueryRowContext(ctx, getIntegration, id)
	var i Integration
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.WholesalerID,
		&i.WholesalerName,
		&i.Branza,
		&i.Username,
		&i.Password,
		&i.Cookies,
		&i.LastRefresh,
		&i.IsActive,
	)
	return i, err
}

const updateIntegrationSession = `-- name: UpdateIntegrationSession :exec
UPDATE integrations
SET cookies = ?, last_refresh = ?
WHERE id = ?
`

type UpdateIntegrationSessionParams struct {
	Cookies     string
	LastRefresh int64
	ID          string
}

func (q *Queries) UpdateIntegrationSession(ctx context.Context, arg UpdateIntegrationSessionParams) error {
	_, err := q.db.ExecContext(ctx, updateIntegrationSession, arg.Cookies, arg.LastRefresh, arg.ID)
	return err
}

const deactivateIntegration = `-- name: DeactivateIntegration :exec
UPDATE integrations SET is_active = 0 WHERE id = ?
`

func (q *Queries) DeactivateIntegration(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deactivateIntegration, id)
	return err
}

const deleteIntegration = `-- name: DeleteIntegration :exec
DELETE FROM integrations WHERE id = ?
`

func (q *Queries) DeleteIntegration(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteIntegration, id)
	return err
}

const listActiveIntegrationsByCompany = `-- name: ListActiveIntegrationsByCompany :many
SELECT id, company_id, wholesaler_id, wholesaler_name, branza,
       username, password, cookies, last_refresh, is_active
FROM integrations
WHERE company_id = ? AND is_active = 1
ORDER BY wholesaler_id, last_refresh DESC
`

func (q *Queries) ListActiveIntegrationsByCompany(ctx context.Context, companyID string) ([]Integration, error) {
	rows, err := q.db.QueryContext(ctx, listActiveIntegrationsByCompany, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Integration
	for rows.Next() {
		var i Integration
		if err := rows.Scan(
			&i.ID,
			&i.CompanyID,
			&i.WholesalerID,
			&i.WholesalerName,
			&i.Branza,
			&i.Username,
			&i.Password,
			&i.Cookies,
			&i.LastRefresh,
			&i.IsActive,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
