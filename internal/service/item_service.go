package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	items        domain.ItemRepository
	users        domain.UserRepository
	bookings     domain.BookingRepository
	comments     domain.CommentRepository
	requests     domain.RequestRepository
	eventBus     domain.EventPublisher
	approvedOnly bool
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewItemService(
	items domain.ItemRepository,
	users domain.UserRepository,
	bookings domain.BookingRepository,
	comments domain.CommentRepository,
	requests domain.RequestRepository,
	eventBus domain.EventPublisher,
	approvedOnly bool,
	logger *zerolog.Logger,
) *ItemService {
	return &ItemService{
		items:        items,
		users:        users,
		bookings:     bookings,
		comments:     comments,
		requests:     requests,
		eventBus:     eventBus,
		approvedOnly: approvedOnly,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, ownerID int64, item *models.Item) error {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return err
	}
	if item.RequestID != nil {
		if _, err := s.requests.GetRequestByID(ctx, *item.RequestID); err != nil {
			return err
		}
	}

	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, item); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("item created")
	return nil
}

// UpdateItem applies patch on behalf of the item owner.
func (s *ItemService) UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	patch.Apply(item)
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) DeleteItem(ctx context.Context, ownerID, itemID int64) error {
	if _, err := s.ownedItem(ctx, ownerID, itemID); err != nil {
		return err
	}
	if err := s.items.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", itemID).Msg("item deleted")
	return nil
}

// GetItemView returns the item with its booking timeline and comments.
func (s *ItemService) GetItemView(ctx context.Context, itemID int64) (*models.ItemView, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, item, s.now())
}

func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID int64) ([]*models.ItemView, error) {
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	items, err := s.items.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*models.ItemView, 0, len(items))
	for _, item := range items {
		view, err := s.buildView(ctx, item, now)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// SearchItems never returns unavailable items; blank text yields nothing.
func (s *ItemService) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	if strings.TrimSpace(text) == "" {
		return []*models.Item{}, nil
	}
	return s.items.SearchItems(ctx, text)
}

// AddComment requires the author to have a booking on the item that has
// already ended.
func (s *ItemService) AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error) {
	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.now()
	rented, err := s.bookings.HasCompletedBooking(ctx, itemID, authorID, now, countedStatuses(s.approvedOnly))
	if err != nil {
		return nil, err
	}
	if !rented {
		return nil, fmt.Errorf("%w: user %d has not rented item %d yet", domain.ErrConditionsNotMet, authorID, itemID)
	}

	comment := &models.Comment{
		Text:       text,
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name,
		CreatedAt:  now,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.CommentEventPayload{CommentID: comment.ID, ItemID: itemID, AuthorID: authorID, Text: text}
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("publish event error")
		}
	}
	return comment, nil
}

func (s *ItemService) ownedItem(ctx context.Context, ownerID, itemID int64) (*models.Item, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: user %d is not owner of item %d", domain.ErrNotOwner, ownerID, itemID)
	}
	return item, nil
}

// buildView attaches lastBooking (latest end before now, minute precision) and
// nextBooking (earliest start after now) to item.
func (s *ItemService) buildView(ctx context.Context, item *models.Item, now time.Time) (*models.ItemView, error) {
	counted := countedStatuses(s.approvedOnly)
	view := &models.ItemView{Item: *item}

	last, err := s.bookings.GetLastPastBooking(ctx, item.ID, now.Truncate(time.Minute), counted)
	switch {
	case err == nil:
		end := last.End
		view.LastBooking = &end
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	next, err := s.bookings.GetNextFutureBooking(ctx, item.ID, now, counted)
	switch {
	case err == nil:
		start := next.Start
		view.NextBooking = &start
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	comments, err := s.comments.GetCommentsByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	view.Comments = comments
	return view, nil
}
