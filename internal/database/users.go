package database

import (
	"context"
	"fmt"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const userColumns = `id, name, email, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := utcNow()
	id, err := insertReturningID(ctx, db.DB,
		`INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`,
		user.Name, user.Email, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicateData, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	if err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites name and email of an existing user.
func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	now := utcNow()
	query := db.Rebind(`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`)
	res, err := db.ExecContext(ctx, query, user.Name, user.Email, now, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s is already registered", domain.ErrDuplicateData, user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := expectRow(res, "user %d", user.ID); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

// DeleteUser removes the user row only. Items, bookings and comments of the
// user are left in place.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRow(res, "user %d", id)
}
