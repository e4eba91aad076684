package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	bookings     domain.BookingRepository
	items        domain.ItemRepository
	users        domain.UserRepository
	eventBus     domain.EventPublisher
	approvedOnly bool
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewBookingService(
	bookings domain.BookingRepository,
	items domain.ItemRepository,
	users domain.UserRepository,
	eventBus domain.EventPublisher,
	approvedOnly bool,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		items:        items,
		users:        users,
		eventBus:     eventBus,
		approvedOnly: approvedOnly,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateBooking reserves itemID for bookerID over [start, end). The booking
// starts out WAITING for the owner's decision.
func (s *BookingService) CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (booking *models.Booking, err error) {
	defer func() { observe("create", err) }()

	booker, err := s.users.GetUserByID(ctx, bookerID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, fmt.Errorf("%w: item %d is not available", domain.ErrConditionsNotMet, itemID)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: booking end must be after start", domain.ErrConditionsNotMet)
	}

	booking = &models.Booking{
		Start:      start,
		End:        end,
		ItemID:     item.ID,
		ItemName:   item.Name,
		OwnerID:    item.OwnerID,
		BookerID:   booker.ID,
		BookerName: booker.Name,
	}
	if err := s.bookings.CreateBookingWithLock(ctx, booking, countedStatuses(s.approvedOnly)); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", itemID).
		Int64("booker_id", bookerID).
		Msg("booking created")
	s.publishEvent(events.EventBookingCreated, booking, bookerID)

	return booking, nil
}

// ApproveBooking records the owner's decision on a WAITING booking. A missing
// booking and a booking on someone else's item are both reported as ErrNotOwner.
func (s *BookingService) ApproveBooking(ctx context.Context, ownerID, bookingID int64, approved bool) (booking *models.Booking, err error) {
	defer func() { observe("approve", err) }()

	booking, err = s.bookings.GetBookingByIDAndOwner(ctx, bookingID, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d does not own the item of booking %d", domain.ErrNotOwner, ownerID, bookingID)
		}
		return nil, err
	}
	if booking.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: booking %d is already %s", domain.ErrConditionsNotMet, bookingID, booking.Status)
	}

	status := models.StatusRejected
	var guard []models.BookingStatus
	if approved {
		status = models.StatusApproved
		if s.approvedOnly {
			guard = countedStatuses(true)
		}
	}

	if err := s.bookings.UpdateBookingStatus(ctx, bookingID, status, guard); err != nil {
		return nil, err
	}
	booking.Status = status
	booking.Version++

	eventType := events.EventBookingRejected
	if approved {
		eventType = events.EventBookingApproved
	}
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("owner_id", ownerID).
		Str("status", string(status)).
		Msg("booking status changed")
	s.publishEvent(eventType, booking, ownerID)

	return booking, nil
}

// GetBooking is visible to the booker and to the item owner only.
func (s *BookingService) GetBooking(ctx context.Context, callerID, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(callerID) {
		return nil, fmt.Errorf("%w: user %d is neither booker nor owner of booking %d", domain.ErrNotOwner, callerID, bookingID)
	}
	return booking, nil
}

func (s *BookingService) ListByBooker(ctx context.Context, bookerID int64, state string) ([]*models.Booking, error) {
	if _, err := s.users.GetUserByID(ctx, bookerID); err != nil {
		return nil, err
	}
	return s.bookings.ListBookings(ctx, domain.BookingFilter{
		BookerID: bookerID,
		State:    models.ParseBookingState(state),
		Now:      s.now(),
	})
}

func (s *BookingService) ListByOwner(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.bookings.ListBookings(ctx, domain.BookingFilter{
		OwnerID: ownerID,
		State:   models.ParseBookingState(state),
		Now:     s.now(),
	})
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		OwnerID:   booking.OwnerID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
		ChangedBy: changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

// countedStatuses is the status set that blocks overlaps and feeds the item
// timeline. nil means every status.
func countedStatuses(approvedOnly bool) []models.BookingStatus {
	if approvedOnly {
		return []models.BookingStatus{models.StatusApproved}
	}
	return nil
}

func observe(operation string, err error) {
	switch kind := domain.Kind(err); kind {
	case "":
		metrics.IncBookingOp(operation, metrics.ResultOK)
	case "INTERNAL":
		metrics.IncBookingOp(operation, metrics.ResultError)
	default:
		metrics.IncBookingOp(operation, metrics.ResultRejected)
	}
}
