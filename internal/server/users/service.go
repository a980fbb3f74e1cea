// Package users implements account management for the portal: registration,
// login with token issuance, refresh token rotation and the role assignments
// that drive access control.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/server/auth"
	"github.com/dmitrijs2005/uploadvault/internal/server/config"
	"github.com/dmitrijs2005/uploadvault/internal/server/models"
	"github.com/dmitrijs2005/uploadvault/internal/server/repositories/refreshtokens"
	userrepo "github.com/dmitrijs2005/uploadvault/internal/server/repositories/users"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// bcryptCost is a seam so tests can use bcrypt.MinCost.
var bcryptCost = bcrypt.DefaultCost

type Service struct {
	repo                         userrepo.Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repo userrepo.Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") {
		return common.NewValidationError("a valid email address is required")
	}
	return nil
}

// Register creates an account with the default role. The first account of a
// deployment is expected to be promoted to superadmin manually.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*models.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, common.NewValidationError("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RoleUser,
	}

	user, err = s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return user, nil
}

func (s *Service) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *Service) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.refreshTokenRepo.Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Login checks the credentials and issues a fresh token pair. Unknown
// accounts and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is deleted and a new
// pair is issued. Expired tokens return common.ErrRefreshTokenExpired.
func (s *Service) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	rt, err := s.refreshTokenRepo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if time.Now().After(rt.Expires) {
		_ = s.refreshTokenRepo.Delete(ctx, token)
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repo.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if err := s.refreshTokenRepo.Delete(ctx, token); err != nil {
		return nil, common.ErrorInternal
	}

	return s.issueTokens(ctx, user)
}

// List returns every account in creation order.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return users, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update rewrites an account's profile fields.
func (s *Service) Update(ctx context.Context, id, email, firstName, lastName string) (*models.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Delete removes an account and, through the schema's cascade, its refresh
// tokens.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetRole assigns one of the known roles to an account.
func (s *Service) SetRole(ctx context.Context, id, role string) error {
	if !models.ValidRole(role) {
		return common.NewValidationError(fmt.Sprintf("unknown role: %s", role))
	}
	return s.repo.SetRole(ctx, id, role)
}

// RemoveRole reverts an account to the default role.
func (s *Service) RemoveRole(ctx context.Context, id string) error {
	return s.repo.SetRole(ctx, id, models.RoleUser)
}
