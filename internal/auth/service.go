package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"librarysvc/internal/library"
)

// ErrInvalidCredentials covers a wrong username, a wrong password and an
// unknown refresh token alike, so callers cannot probe which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service exchanges identities for short-lived opaque tokens.
type Service struct {
	Users  library.UserRepo
	Tokens TokenStore
}

func (s *Service) Register(ctx context.Context, username, password string) (*library.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, library.Validationf("username must not be empty")
	}
	if len(password) < 8 {
		return nil, library.Validationf("password must be at least 8 characters")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &library.User{Username: username, PasswordHash: hash}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, library.ErrNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u.ID)
}

// Refresh rotates the refresh token and returns a fresh pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, err := s.Tokens.UserForRefresh(ctx, refreshToken)
	if errors.Is(err, library.ErrUnauthenticated) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Tokens.DeleteRefresh(ctx, refreshToken); err != nil {
		return TokenPair{}, err
	}
	return s.issue(ctx, userID)
}

func (s *Service) issue(ctx context.Context, userID int64) (TokenPair, error) {
	pair := TokenPair{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
	}
	if err := s.Tokens.SaveAccess(ctx, pair.AccessToken, userID); err != nil {
		return TokenPair{}, err
	}
	if err := s.Tokens.SaveRefresh(ctx, pair.RefreshToken, userID); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
