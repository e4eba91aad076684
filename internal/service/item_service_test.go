package service

import (
	"context"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newItemService(repo *MockRepository, bus domain.EventPublisher, approvedOnly bool) *ItemService {
	logger := zerolog.Nop()
	return NewItemService(repo, repo, repo, repo, repo, bus, approvedOnly, &logger)
}

func TestItemService_CreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil)
		repo.On("CreateItem", mock.Anything, mock.MatchedBy(func(i *models.Item) bool { return i.OwnerID == 1 })).Return(nil)

		item := &models.Item{Name: "Drill", Description: "d", Available: true, OwnerID: 99}
		require.NoError(t, newItemService(repo, nil, false).CreateItem(ctx, 1, item))
		assert.Equal(t, int64(1), item.OwnerID)
		repo.AssertExpectations(t)
	})

	t.Run("owner missing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(nil, notFoundErr("user 1"))

		err := newItemService(repo, nil, false).CreateItem(ctx, 1, &models.Item{Name: "Drill"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
	})

	t.Run("request missing", func(t *testing.T) {
		repo := new(MockRepository)
		reqID := int64(7)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil)
		repo.On("GetRequestByID", mock.Anything, reqID).Return(nil, notFoundErr("request 7"))

		err := newItemService(repo, nil, false).CreateItem(ctx, 1, &models.Item{Name: "Tent", RequestID: &reqID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestItemService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	name := "Hammer"
	available := false

	t.Run("owner updates", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetItemByID", mock.Anything, int64(10)).Return(&models.Item{ID: 10, Name: "Drill", Description: "keep", Available: true, OwnerID: 1}, nil)
		repo.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)

		item, err := newItemService(repo, nil, false).UpdateItem(ctx, 1, 10, models.ItemPatch{Name: &name, Available: &available})
		require.NoError(t, err)
		assert.Equal(t, "Hammer", item.Name)
		assert.Equal(t, "keep", item.Description)
		assert.False(t, item.Available)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetItemByID", mock.Anything, int64(10)).Return(&models.Item{ID: 10, OwnerID: 1}, nil)

		_, err := newItemService(repo, nil, false).UpdateItem(ctx, 2, 10, models.ItemPatch{Name: &name})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
		repo.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}

func TestItemService_DeleteItem(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetItemByID", mock.Anything, int64(10)).Return(&models.Item{ID: 10, OwnerID: 1}, nil)
	repo.On("DeleteItem", mock.Anything, int64(10)).Return(nil).Once()
	s := newItemService(repo, nil, false)

	assert.ErrorIs(t, s.DeleteItem(ctx, 2, 10), domain.ErrNotOwner)
	assert.NoError(t, s.DeleteItem(ctx, 1, 10))
	repo.AssertExpectations(t)
}

func TestItemService_GetItemView(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	lastEnd := now.Add(-24 * time.Hour)
	nextStart := now.Add(24 * time.Hour)
	comments := []*models.Comment{{ID: 1, Text: "nice"}}

	repo := new(MockRepository)
	repo.On("GetItemByID", mock.Anything, int64(10)).Return(&models.Item{ID: 10, Name: "Drill"}, nil)
	repo.On("GetLastPastBooking", mock.Anything, int64(10), now.Truncate(time.Minute), noStatuses).
		Return(&models.Booking{ID: 1, End: lastEnd}, nil)
	repo.On("GetNextFutureBooking", mock.Anything, int64(10), now, noStatuses).
		Return(&models.Booking{ID: 2, Start: nextStart}, nil)
	repo.On("GetCommentsByItem", mock.Anything, int64(10)).Return(comments, nil)

	s := newItemService(repo, nil, false)
	s.now = func() time.Time { return now }

	view, err := s.GetItemView(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Drill", view.Name)
	require.NotNil(t, view.LastBooking)
	assert.Equal(t, lastEnd, *view.LastBooking)
	require.NotNil(t, view.NextBooking)
	assert.Equal(t, nextStart, *view.NextBooking)
	assert.Equal(t, comments, view.Comments)
	repo.AssertExpectations(t)
}

func TestItemService_GetItemView_NoBookings(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetItemByID", mock.Anything, int64(10)).Return(&models.Item{ID: 10}, nil)
	repo.On("GetLastPastBooking", mock.Anything, int64(10), mock.Anything, mock.Anything).Return(nil, notFoundErr("past booking"))
	repo.On("GetNextFutureBooking", mock.Anything, int64(10), mock.Anything, mock.Anything).Return(nil, notFoundErr("future booking"))
	repo.On("GetCommentsByItem", mock.Anything, int64(10)).Return([]*models.Comment{}, nil)

	view, err := newItemService(repo, nil, false).GetItemView(ctx, 10)
	require.NoError(t, err)
	assert.Nil(t, view.LastBooking)
	assert.Nil(t, view.NextBooking)
	assert.Empty(t, view.Comments)
}

func TestItemService_GetItemView_ItemMissing(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetItemByID", mock.Anything, int64(10)).Return(nil, notFoundErr("item 10"))

	_, err := newItemService(repo, nil, false).GetItemView(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemService_GetOwnerItems(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1}, nil)
	repo.On("GetItemsByOwner", mock.Anything, int64(1)).Return([]*models.Item{{ID: 10}, {ID: 11}}, nil)
	repo.On("GetLastPastBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, notFoundErr("past booking"))
	repo.On("GetNextFutureBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, notFoundErr("future booking"))
	repo.On("GetCommentsByItem", mock.Anything, mock.Anything).Return([]*models.Comment{}, nil)

	views, err := newItemService(repo, nil, false).GetOwnerItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(10), views[0].ID)
	assert.Equal(t, int64(11), views[1].ID)
}

func TestItemService_SearchItems(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	found := []*models.Item{{ID: 1, Available: true}}
	repo.On("SearchItems", mock.Anything, "DrIlL").Return(found, nil)
	s := newItemService(repo, nil, false)

	for _, blank := range []string{"", "   ", "\t"} {
		items, err := s.SearchItems(ctx, blank)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}

	items, err := s.SearchItems(ctx, "DrIlL")
	require.NoError(t, err)
	assert.Equal(t, found, items)
	repo.AssertNumberOfCalls(t, "SearchItems", 1)
}

func TestItemService_AddComment(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	author := &models.User{ID: 2, Name: "Author"}
	item := &models.Item{ID: 10, OwnerID: 1}

	t.Run("completed rental", func(t *testing.T) {
		repo := new(MockRepository)
		bus := new(mockEventPublisher)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil)
		repo.On("GetItemByID", mock.Anything, int64(10)).Return(item, nil)
		repo.On("HasCompletedBooking", mock.Anything, int64(10), int64(2), now, noStatuses).Return(true, nil)
		repo.On("CreateComment", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Comment).ID = 3
		}).Return(nil)
		bus.On("PublishJSON", events.EventCommentAdded, events.CommentEventPayload{CommentID: 3, ItemID: 10, AuthorID: 2, Text: "great"}).Return(nil)

		s := newItemService(repo, bus, false)
		s.now = func() time.Time { return now }

		comment, err := s.AddComment(ctx, 10, 2, "great")
		require.NoError(t, err)
		assert.Equal(t, int64(3), comment.ID)
		assert.Equal(t, "Author", comment.AuthorName)
		assert.Equal(t, now, comment.CreatedAt)
		bus.AssertExpectations(t)
	})

	t.Run("no completed rental", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil)
		repo.On("GetItemByID", mock.Anything, int64(10)).Return(item, nil)
		repo.On("HasCompletedBooking", mock.Anything, int64(10), int64(2), mock.Anything, mock.Anything).Return(false, nil)

		_, err := newItemService(repo, nil, false).AddComment(ctx, 10, 2, "great")
		assert.ErrorIs(t, err, domain.ErrConditionsNotMet)
		repo.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything)
	})

	t.Run("author missing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(nil, notFoundErr("user 2"))

		_, err := newItemService(repo, nil, false).AddComment(ctx, 10, 2, "great")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("approved only mode", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByID", mock.Anything, int64(2)).Return(author, nil)
		repo.On("GetItemByID", mock.Anything, int64(10)).Return(item, nil)
		repo.On("HasCompletedBooking", mock.Anything, int64(10), int64(2), mock.Anything, []models.BookingStatus{models.StatusApproved}).Return(false, nil)

		_, err := newItemService(repo, nil, true).AddComment(ctx, 10, 2, "great")
		assert.ErrorIs(t, err, domain.ErrConditionsNotMet)
		repo.AssertExpectations(t)
	})
}
