package service

import (
	"context"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type RequestService struct {
	requests domain.RequestRepository
	users    domain.UserRepository
	items    domain.ItemRepository
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewRequestService(requests domain.RequestRepository, users domain.UserRepository, items domain.ItemRepository, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		users:    users,
		items:    items,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *RequestService) CreateRequest(ctx context.Context, requesterID int64, description string) (*models.ItemRequest, error) {
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}

	request := &models.ItemRequest{
		Description: description,
		RequesterID: requesterID,
		CreatedAt:   s.now(),
	}
	if err := s.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("request_id", request.ID).Int64("requester_id", requesterID).Msg("item request created")
	return request, nil
}

// GetOwnRequests lists requesterID's requests, newest first, with the items
// created in answer to each.
func (s *RequestService) GetOwnRequests(ctx context.Context, requesterID int64) ([]*models.RequestView, error) {
	if _, err := s.users.GetUserByID(ctx, requesterID); err != nil {
		return nil, err
	}
	requests, err := s.requests.GetRequestsByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

// GetOtherRequests lists the requests of every other user, newest first.
func (s *RequestService) GetOtherRequests(ctx context.Context, userID int64) ([]*models.RequestView, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	requests, err := s.requests.GetRequestsExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, requests)
}

func (s *RequestService) GetRequest(ctx context.Context, userID, requestID int64) (*models.RequestView, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	request, err := s.requests.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	views, err := s.withItems(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *RequestService) withItems(ctx context.Context, requests []*models.ItemRequest) ([]*models.RequestView, error) {
	views := make([]*models.RequestView, 0, len(requests))
	if len(requests) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(requests))
	byID := make(map[int64]*models.RequestView, len(requests))
	for _, r := range requests {
		view := &models.RequestView{ItemRequest: *r, Items: []*models.Item{}}
		views = append(views, view)
		byID[r.ID] = view
		ids = append(ids, r.ID)
	}

	items, err := s.items.GetItemsByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.RequestID == nil {
			continue
		}
		if view, ok := byID[*item.RequestID]; ok {
			view.Items = append(view.Items, item)
		}
	}
	return views, nil
}
