package services

import (
	"context"

	"github.com/check-vero/apiserver/types"
	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	AddPoints(ctx context.Context, id string, delta int) error
	Count(ctx context.Context) (int, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// RegisterInput carries a validated registration request. PasswordHash must
// already be hashed; the service never sees plaintext credentials.
type RegisterInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CompanyName  string
}

// Register creates a new active account with a fresh identifier and a zero
// point balance. Returns store.ErrConflict when the username or email is
// already taken.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	return s.repo.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		CompanyName:  in.CompanyName,
		Points:       0,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
	})
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// AwardPoints credits delta points to the user's balance.
func (s *UserService) AwardPoints(ctx context.Context, id string, delta int) error {
	return s.repo.AddPoints(ctx, id, delta)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
