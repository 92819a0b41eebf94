package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/ourchat/internal/domain"
	"github.com/vedran77/ourchat/internal/repository"
)

const searchLimit = 20

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Search finds other users whose name contains the query.
func (s *UserService) Search(ctx context.Context, userID uuid.UUID, name string) ([]domain.UserSummary, error) {
	users, err := s.userRepo.Search(ctx, userID, name, searchLimit)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) domain.UserSummary {
		return u.Summary()
	}), nil
}
