package service

import (
	"context"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	users  domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(users domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.users.CreateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.GetAllUsers(ctx)
}

// UpdateUser applies the non-nil fields of patch. A patch that changes nothing
// is not written, so resubmitting the current email never trips the
// uniqueness check.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.Name != nil && *patch.Name != user.Name {
		user.Name = *patch.Name
		changed = true
	}
	if patch.Email != nil && *patch.Email != user.Email {
		user.Email = *patch.Email
		changed = true
	}
	if !changed {
		return user, nil
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}
