package database

import (
	"context"
	"fmt"
	"strings"

	"shareit/internal/config"
	"shareit/internal/models"

	"github.com/doug-martin/goqu/v9"
)

const itemColumns = `id, name, description, is_available, owner_id, request_id, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	now := utcNow()
	id, err := insertReturningID(ctx, db.DB,
		`INSERT INTO items (name, description, is_available, owner_id, request_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		item.Name, item.Description, item.Available, item.OwnerID, item.RequestID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	query := db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE id = ?`)
	if err := db.GetContext(ctx, &item, query, id); err != nil {
		return nil, notFound(err, "item %d", id)
	}
	return &item, nil
}

func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	items := []*models.Item{}
	query := db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE owner_id = ? ORDER BY id`)
	if err := db.SelectContext(ctx, &items, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get owner items: %w", err)
	}
	return items, nil
}

// GetItemsByRequests returns the items created in answer to any of requestIDs.
func (db *DB) GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error) {
	items := []*models.Item{}
	if len(requestIDs) == 0 {
		return items, nil
	}

	query, args, err := db.dialect.From("items").Prepared(true).
		Select(itemSelect()...).
		Where(goqu.C("request_id").In(requestIDs)).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build items query: %w", err)
	}
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get request items: %w", err)
	}
	return items, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	now := utcNow()
	query := db.Rebind(`UPDATE items SET name = ?, description = ?, is_available = ?, updated_at = ? WHERE id = ?`)
	res, err := db.ExecContext(ctx, query, item.Name, item.Description, item.Available, now, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if err := expectRow(res, "item %d", item.ID); err != nil {
		return err
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectRow(res, "item %d", id)
}

// SearchItems matches text as a case-insensitive substring of name or
// description among available items. Blank text matches nothing.
func (db *DB) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	items := []*models.Item{}
	text = strings.TrimSpace(text)
	if text == "" {
		return items, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	lower := "LOWER"
	if db.driver == config.DriverSQLite {
		lower = "ulower"
	}
	query, args, err := db.dialect.From("items").Prepared(true).
		Select(itemSelect()...).
		Where(
			goqu.C("is_available").IsTrue(),
			goqu.Or(
				goqu.L(lower+`(name) LIKE ? ESCAPE '\'`, pattern),
				goqu.L(lower+`(description) LIKE ? ESCAPE '\'`, pattern),
			),
		).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

func itemSelect() []interface{} {
	cols := strings.Split(itemColumns, ", ")
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = goqu.C(c)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
