package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
}

// BookingFilter narrows a booking listing to one participant side and a state.
// Exactly one of BookerID and OwnerID is set.
type BookingFilter struct {
	BookerID int64
	OwnerID  int64
	State    models.BookingState
	Now      time.Time
}

// BookingRepository is the persistence side of the booking engine. The counted
// argument restricts which statuses take part in overlap and timeline checks;
// nil means every status counts.
type BookingRepository interface {
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, counted []models.BookingStatus) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus, guard []models.BookingStatus) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]*models.Booking, error)
	GetLastPastBooking(ctx context.Context, itemID int64, before time.Time, counted []models.BookingStatus) (*models.Booking, error)
	GetNextFutureBooking(ctx context.Context, itemID int64, after time.Time, counted []models.BookingStatus) (*models.Booking, error)
	HasCompletedBooking(ctx context.Context, itemID, userID int64, before time.Time, counted []models.BookingStatus) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, request *models.ItemRequest) error
	GetRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetRequestsExcept(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
}

// RateLimiter decides whether another request from key is allowed right now.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type ItemService interface {
	CreateItem(ctx context.Context, ownerID int64, item *models.Item) error
	UpdateItem(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, ownerID, itemID int64) error
	GetItemView(ctx context.Context, itemID int64) (*models.ItemView, error)
	GetOwnerItems(ctx context.Context, ownerID int64) ([]*models.ItemView, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
	AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.Booking, error)
	ApproveBooking(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.Booking, error)
	GetBooking(ctx context.Context, callerID, bookingID int64) (*models.Booking, error)
	ListByBooker(ctx context.Context, bookerID int64, state string) ([]*models.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64, state string) ([]*models.Booking, error)
}

type RequestService interface {
	CreateRequest(ctx context.Context, requesterID int64, description string) (*models.ItemRequest, error)
	GetOwnRequests(ctx context.Context, requesterID int64) ([]*models.RequestView, error)
	GetOtherRequests(ctx context.Context, userID int64) ([]*models.RequestView, error)
	GetRequest(ctx context.Context, userID, requestID int64) (*models.RequestView, error)
}
