package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"
	"bookstore/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// AuthService is the credential store and login flow: it owns password hashing and resolves
// the acting user from bearer tokens.
type AuthService struct {
	userRepo repositories.UserRepository
	tokens   *TokenService
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates a user with a bcrypt-hashed password. A taken email yields ErrDuplicateEmail,
// also when two signups race past the pre-check and meet at the unique index.
func (s *AuthService) Register(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)
	switch {
	case !role.Valid():
		return nil, apperrors.New(apperrors.ErrValidation, "role must be one of Author, Seller, User")
	case email == "":
		return nil, apperrors.New(apperrors.ErrValidation, "email is required")
	case password == "":
		return nil, apperrors.New(apperrors.ErrValidation, "password is required")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.New(apperrors.ErrDuplicateEmail, "email already registered")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, err, "password cannot be hashed")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("New user signed up: id=%d role=%s", user.ID, user.Role)
	return user, nil
}

// FindByEmail returns the user registered under email, or ErrNotFound.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, normalizeEmail(email))
}

// Verify checks credentials and the role claimed at login. Any mismatch returns a nil user and
// a nil error; an error is returned only when the store itself fails.
func (s *AuthService) Verify(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Burn a comparison anyway so unknown emails cost the same as wrong passwords.
			bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, nil
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	if user.Role != role {
		return nil, nil
	}
	return user, nil
}

// Login verifies credentials and issues an access token. Every mismatch is the same
// ErrAuthentication so callers cannot tell which factor failed.
func (s *AuthService) Login(ctx context.Context, email, password string, role models.Role) (string, *models.User, error) {
	user, err := s.Verify(ctx, email, password, role)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, apperrors.New(apperrors.ErrAuthentication, "invalid credentials or role mismatch")
	}
	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, err
	}
	log.Printf("User logged in: id=%d", user.ID)
	return token, user, nil
}

// Authenticate resolves the user a bearer token was issued to.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		return nil, apperrors.New(apperrors.ErrAuthentication, "invalid or expired token")
	}
	user, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthentication, "invalid or expired token")
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
