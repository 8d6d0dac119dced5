package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tazkara/internal/auth"
	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
	"tazkara/internal/repository"
)

// UserService implements signup/login and the admin user operations.
type UserService struct {
	users  *repository.UserRepository
	tokens *auth.TokenManager
}

func NewUserService(users *repository.UserRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{users: users, tokens: tokens}
}

// Signup registers a user and signs them in.
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsConfirmed:  true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. Lookup and password
// failures are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// UpdateRole changes a user's role. Role values are validated at the
// binding layer.
func (s *UserService) UpdateRole(ctx context.Context, id string, role string) (*models.User, error) {
	userID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
