package database

import (
	"context"
	"fmt"

	"shareit/internal/models"
)

const requestColumns = `id, description, requester_id, created_at`

func (db *DB) CreateRequest(ctx context.Context, request *models.ItemRequest) error {
	created := request.CreatedAt.UTC()
	if request.CreatedAt.IsZero() {
		created = utcNow()
	}
	id, err := insertReturningID(ctx, db.DB,
		`INSERT INTO requests (description, requester_id, created_at) VALUES (?, ?, ?) RETURNING id`,
		request.Description, request.RequesterID, created,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.ID = id
	request.CreatedAt = created
	return nil
}

func (db *DB) GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error) {
	var request models.ItemRequest
	query := db.Rebind(`SELECT ` + requestColumns + ` FROM requests WHERE id = ?`)
	if err := db.GetContext(ctx, &request, query, id); err != nil {
		return nil, notFound(err, "request %d", id)
	}
	return &request, nil
}

// GetRequestsByRequester lists the requests posted by requesterID, newest first.
func (db *DB) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	return db.selectRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id = ? ORDER BY created_at DESC, id DESC`,
		requesterID)
}

// GetRequestsExcept lists the requests posted by everyone but requesterID, newest first.
func (db *DB) GetRequestsExcept(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	return db.selectRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id <> ? ORDER BY created_at DESC, id DESC`,
		requesterID)
}

func (db *DB) selectRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	requests := []*models.ItemRequest{}
	if err := db.SelectContext(ctx, &requests, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}
	return requests, nil
}
