package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// CreateBookingWithLock inserts booking as WAITING unless another booking on
// the same item overlaps [Start, End). Only bookings whose status is in
// counted take part in the check; nil counts every status. The check and the
// insert run in one transaction that holds the write lock from the start.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, counted []models.BookingStatus) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.lockItem(ctx, tx, booking.ItemID); err != nil {
		return err
	}

	start, end := booking.Start.UTC(), booking.End.UTC()
	overlapping, err := db.countOverlapping(ctx, tx, booking.ItemID, start, end, 0, counted)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return fmt.Errorf("%w: reservation already exists", domain.ErrConditionsNotMet)
	}

	now := utcNow()
	id, err := insertReturningID(ctx, tx,
		`INSERT INTO bookings (start_time, end_time, item_id, booker_id, status, created_at, updated_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1) RETURNING id`,
		start, end, booking.ItemID, booking.BookerID, string(models.StatusWaiting), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.Start = start
	booking.End = end
	booking.Status = models.StatusWaiting
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingStatus moves a WAITING booking to status. When approving with a
// non-nil guard, the booking must not overlap another booking whose status is
// in guard. A booking that is no longer WAITING is left untouched and
// ErrConditionsNotMet is returned.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, guard []models.BookingStatus) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if status == models.StatusApproved && guard != nil {
		var span struct {
			ItemID int64     `db:"item_id"`
			Start  time.Time `db:"start_time"`
			End    time.Time `db:"end_time"`
		}
		query := tx.Rebind(`SELECT item_id, start_time, end_time FROM bookings WHERE id = ?`)
		if err := tx.GetContext(ctx, &span, query, id); err != nil {
			return notFound(err, "booking %d", id)
		}
		if err := db.lockItem(ctx, tx, span.ItemID); err != nil {
			return err
		}
		overlapping, err := db.countOverlapping(ctx, tx, span.ItemID, span.Start.UTC(), span.End.UTC(), id, guard)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return fmt.Errorf("%w: item is already booked for this period", domain.ErrConditionsNotMet)
		}
	}

	query := tx.Rebind(`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND status = ?`)
	res, err := tx.ExecContext(ctx, query, string(status), utcNow(), id, string(models.StatusWaiting))
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: booking %d is not waiting for approval", domain.ErrConditionsNotMet, id)
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, fmt.Sprintf("booking %d", id), []exp.Expression{goqu.I("b.id").Eq(id)})
}

// GetBookingByIDAndOwner finds a booking only if its item belongs to ownerID.
func (db *DB) GetBookingByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Booking, error) {
	return db.getBooking(ctx, fmt.Sprintf("booking %d of owner %d", id, ownerID),
		[]exp.Expression{goqu.I("b.id").Eq(id), goqu.I("i.owner_id").Eq(ownerID)})
}

// ListBookings returns the bookings of one booker or of one owner's items in
// the requested state, newest start first.
func (db *DB) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*models.Booking, error) {
	var where []exp.Expression
	if filter.BookerID != 0 {
		where = append(where, goqu.I("b.booker_id").Eq(filter.BookerID))
	} else {
		where = append(where, goqu.I("i.owner_id").Eq(filter.OwnerID))
	}

	now := filter.Now.UTC()
	switch filter.State {
	case models.StateCurrent:
		where = append(where, goqu.I("b.start_time").Lt(now), goqu.I("b.end_time").Gt(now))
	case models.StatePast:
		where = append(where, goqu.I("b.end_time").Lt(now))
	case models.StateFuture:
		where = append(where, goqu.I("b.start_time").Gt(now))
	case models.StateWaiting:
		where = append(where, goqu.I("b.status").Eq(string(models.StatusWaiting)))
	case models.StateRejected:
		where = append(where, goqu.I("b.status").Eq(string(models.StatusRejected)))
	}

	query, args, err := db.bookingSelect().
		Where(where...).
		Order(goqu.I("b.start_time").Desc(), goqu.I("b.id").Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookings query: %w", err)
	}

	bookings := []*models.Booking{}
	if err := db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetLastPastBooking returns the booking on itemID with the latest end before before.
func (db *DB) GetLastPastBooking(ctx context.Context, itemID int64, before time.Time, counted []models.BookingStatus) (*models.Booking, error) {
	where := []exp.Expression{goqu.I("b.item_id").Eq(itemID), goqu.I("b.end_time").Lt(before.UTC())}
	if counted != nil {
		where = append(where, goqu.I("b.status").In(statusValues(counted)))
	}
	return db.getBooking(ctx, fmt.Sprintf("past booking of item %d", itemID), where,
		goqu.I("b.end_time").Desc(), goqu.I("b.id").Desc())
}

// GetNextFutureBooking returns the booking on itemID with the earliest start after after.
func (db *DB) GetNextFutureBooking(ctx context.Context, itemID int64, after time.Time, counted []models.BookingStatus) (*models.Booking, error) {
	where := []exp.Expression{goqu.I("b.item_id").Eq(itemID), goqu.I("b.start_time").Gt(after.UTC())}
	if counted != nil {
		where = append(where, goqu.I("b.status").In(statusValues(counted)))
	}
	return db.getBooking(ctx, fmt.Sprintf("future booking of item %d", itemID), where,
		goqu.I("b.start_time").Asc(), goqu.I("b.id").Asc())
}

// HasCompletedBooking reports whether userID has a booking on itemID that ended before before.
func (db *DB) HasCompletedBooking(ctx context.Context, itemID, userID int64, before time.Time, counted []models.BookingStatus) (bool, error) {
	ds := db.dialect.From("bookings").Prepared(true).
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("item_id").Eq(itemID),
			goqu.C("booker_id").Eq(userID),
			goqu.C("end_time").Lt(before.UTC()),
		)
	if counted != nil {
		ds = ds.Where(goqu.C("status").In(statusValues(counted)))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return false, fmt.Errorf("failed to build completed booking query: %w", err)
	}

	var count int
	if err := db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return count > 0, nil
}

func (db *DB) getBooking(ctx context.Context, what string, where []exp.Expression, order ...exp.OrderedExpression) (*models.Booking, error) {
	query, args, err := db.bookingSelect().Where(where...).Order(order...).Limit(1).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}

	var booking models.Booking
	if err := db.GetContext(ctx, &booking, query, args...); err != nil {
		return nil, notFound(err, "%s", what)
	}
	return &booking, nil
}

func (db *DB) bookingSelect() *goqu.SelectDataset {
	return db.dialect.From(goqu.T("bookings").As("b")).Prepared(true).
		Join(goqu.T("items").As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("b.item_id")))).
		LeftJoin(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.booker_id")))).
		Select(
			goqu.I("b.id").As("id"),
			goqu.I("b.start_time").As("start_time"),
			goqu.I("b.end_time").As("end_time"),
			goqu.I("b.item_id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.I("i.owner_id").As("owner_id"),
			goqu.I("b.booker_id").As("booker_id"),
			goqu.COALESCE(goqu.I("u.name"), "").As("booker_name"),
			goqu.I("b.status").As("status"),
			goqu.I("b.created_at").As("created_at"),
			goqu.I("b.updated_at").As("updated_at"),
			goqu.I("b.version").As("version"),
		)
}

// lockItem makes sure the item exists and, on Postgres, holds its row lock
// until the transaction ends. SQLite transactions already own the database
// write lock from BEGIN.
func (db *DB) lockItem(ctx context.Context, tx *sqlx.Tx, itemID int64) error {
	query := `SELECT id FROM items WHERE id = ?`
	if db.driver == config.DriverPostgres {
		query += ` FOR UPDATE`
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(query), itemID); err != nil {
		return notFound(err, "item %d", itemID)
	}
	return nil
}

func (db *DB) countOverlapping(ctx context.Context, tx *sqlx.Tx, itemID int64, start, end time.Time, excludeID int64, counted []models.BookingStatus) (int, error) {
	ds := db.dialect.From("bookings").Prepared(true).
		Select(goqu.COUNT("*")).
		Where(
			goqu.C("item_id").Eq(itemID),
			goqu.C("end_time").Gt(start),
			goqu.C("start_time").Lt(end),
		)
	if excludeID != 0 {
		ds = ds.Where(goqu.C("id").Neq(excludeID))
	}
	if counted != nil {
		ds = ds.Where(goqu.C("status").In(statusValues(counted)))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build overlap query: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return count, nil
}

func statusValues(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
