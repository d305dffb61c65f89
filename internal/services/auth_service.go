package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"synergyfoods/internal/auth"
	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/validate"
)

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *auth.Tokens
}

func NewAuthService(users *repos.UserRepo, tokens *auth.Tokens) *AuthService {
	return &AuthService{Users: users, Tokens: tokens}
}

type RegisterInput struct {
	Name     string `json:"name" form:"name" validate:"required,max=80"`
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (s *AuthService) verify(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

// Login binds the session to the user after checking the password.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	return s.Users.SessionUser(ctx, sid)
}

func (s *AuthService) Touch(ctx context.Context, sid string) error {
	return s.Users.TouchSession(ctx, sid)
}

// Register creates a customer account and signs the session in.
func (s *AuthService) Register(ctx context.Context, sid string, in RegisterInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}
	if !validate.Password(in.Password) {
		return nil, invalid("password", "must be 8-64 characters with upper, lower, digit and symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{ID: uuid.NewString(), Email: in.Email, Name: in.Name, Hash: string(hash), Role: domain.RoleUser}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrConstraint) {
			return nil, invalid("email", "is already registered")
		}
		return nil, err
	}
	if sid != "" {
		if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// IssueToken exchanges credentials for an API bearer token.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (string, time.Time, *domain.User, error) {
	u, err := s.verify(ctx, email, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	tok, exp, err := s.Tokens.Issue(u.ID, u.Email, u.Role)
	return tok, exp, u, err
}

// UserFromToken resolves a bearer token to a current user. Role is read from
// the store so demotions take effect before the token expires.
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, ErrForbidden
	}
	u, err := s.Users.ByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrForbidden
	}
	return u, nil
}
