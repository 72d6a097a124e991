package core

import (
	"context"
	"fmt"

	"github.com/FlaxHawk/Anxiety-Ally/internal/auth"
	"github.com/FlaxHawk/Anxiety-Ally/internal/store"
)

type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
}

type UserService struct {
	dbStore *store.Store
	tokens  *auth.TokenManager
}

func NewUserService(db *store.Store, tokens *auth.TokenManager) *UserService {
	return &UserService{dbStore: db, tokens: tokens}
}

// Register returns store.ErrDuplicateEmail when the email is taken.
func (s *UserService) Register(ctx context.Context, reg Registration) (*store.User, error) {
	existing, err := s.dbStore.GetUserByEmail(ctx, reg.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, store.ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	// The unique index still catches a concurrent registration.
	return s.dbStore.CreateUser(ctx, reg.Email, reg.FullName, hash)
}

// Authenticate checks the credentials and issues an access token.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.dbStore.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}
