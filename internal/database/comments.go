package database

import (
	"context"
	"fmt"

	"shareit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	created := comment.CreatedAt.UTC()
	if comment.CreatedAt.IsZero() {
		created = utcNow()
	}
	id, err := insertReturningID(ctx, db.DB,
		`INSERT INTO comments (text, item_id, author_id, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		comment.Text, comment.ItemID, comment.AuthorID, created,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	comment.ID = id
	comment.CreatedAt = created
	return nil
}

// GetCommentsByItem returns the comments on an item in posting order.
func (db *DB) GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	query := db.Rebind(`SELECT c.id, c.text, c.item_id, c.author_id, COALESCE(u.name, '') AS author_name, c.created_at
	          FROM comments c
	          LEFT JOIN users u ON u.id = c.author_id
	          WHERE c.item_id = ?
	          ORDER BY c.created_at, c.id`)
	if err := db.SelectContext(ctx, &comments, query, itemID); err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}
