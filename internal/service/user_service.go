// Package service contains the portal's business logic.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"resource-portal-go/internal/model"
	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/hash"
	"resource-portal-go/pkg/log"
	"resource-portal-go/pkg/token"
)

const minPasswordLength = 6

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         *model.User `json:"user"`
}

// UserService covers accounts and credentials.
type UserService interface {
	Register(ctx context.Context, email, password, fullName string) (*model.User, error)
	// CreateAdmin creates an admin account; it refuses an email that is already registered.
	CreateAdmin(ctx context.Context, email, password, fullName string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID, fullName string) (*model.User, error)
	// Logout ends the login session, revoking its access and refresh tokens.
	Logout(ctx context.Context, accessToken string) error
	// Authenticate resolves a bearer access token to its user.
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
}

// NewUserService creates a UserService.
func NewUserService(userRepo repository.UserRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	return s.create(ctx, email, password, fullName, model.RoleStudent)
}

func (s *userService) CreateAdmin(ctx context.Context, email, password, fullName string) (*model.User, error) {
	return s.create(ctx, email, password, fullName, model.RoleAdmin)
}

func (s *userService) create(ctx context.Context, email, password, fullName string, role model.Role) (*model.User, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return nil, validationError("Email, password and full name are required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, validationError("Password must be at least %d characters", minPasswordLength)
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:    email,
		Password: hashed,
		FullName: fullName,
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent registration can pass the lookup above
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Infof("[UserService] created %s account %s", role, user.ID)
	return user, nil
}

// Login checks the password and starts a new session.
func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFound(err, ErrInvalidCredentials)
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue("", user)
}

// RefreshToken trades a refresh token for a new pair in the same session.
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwtManager.VerifyTokenOfType(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := s.checkSession(ctx, claims); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, notFound(err, ErrInvalidToken)
	}
	return s.issue(claims.ID, user)
}

func (s *userService) issue(sessionID string, user *model.User) (*AuthResult, error) {
	access, refresh, err := s.jwtManager.GenerateTokenPair(sessionID, user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: access, RefreshToken: refresh, User: user}, nil
}

// checkSession rejects tokens whose session was ended by Logout.
func (s *userService) checkSession(ctx context.Context, claims *token.CustomClaims) error {
	if claims.ID == "" {
		return ErrInvalidToken
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrInvalidToken
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID, fullName string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, validationError("Full name is required")
	}
	if err := s.userRepo.UpdateFullName(ctx, userID, fullName); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// Logout ends the session the access token belongs to, which also
// invalidates the refresh token issued with it.
func (s *userService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtManager.VerifyTokenOfType(accessToken, token.TypeAccess)
	if err != nil || claims.ID == "" {
		return ErrInvalidToken
	}
	ttl := time.Until(s.jwtManager.SessionExpiry(claims))
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		log.Error("[UserService] revoke session", err)
		return err
	}
	return nil
}

// Authenticate resolves an access token to its user.
func (s *userService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.jwtManager.VerifyTokenOfType(accessToken, token.TypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if err := s.checkSession(ctx, claims); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, notFound(err, ErrInvalidToken)
	}
	return user, nil
}
