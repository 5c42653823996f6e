package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteduco342/OMGroups-backend/internal/logging"
	"github.com/noteduco342/OMGroups-backend/internal/models"
	"github.com/noteduco342/OMGroups-backend/internal/repository"
	"github.com/noteduco342/OMGroups-backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes and newer versions reject it.
const maxPasswordBytes = 72

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type AuthService struct {
	userRepo          repository.UserRepositoryInterface
	tokens            TokenIssuer
	bcryptCost        int
	passwordMinLength int
}

func NewAuthService(userRepo repository.UserRepositoryInterface, tokens TokenIssuer, bcryptCost, passwordMinLength int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:          userRepo,
		tokens:            tokens,
		bcryptCost:        bcryptCost,
		passwordMinLength: passwordMinLength,
	}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(input.Email)
	if !validation.ValidateEmail(email) {
		return nil, newError(KindValidation, "invalid_email", MsgInvalidEmail)
	}
	if !validation.ValidatePassword(input.Password, s.passwordMinLength) {
		return nil, newError(KindValidation, "weak_password",
			fmt.Sprintf("Password must be at least %d characters", s.passwordMinLength))
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, newError(KindValidation, "password_too_long", MsgPasswordTooLong)
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, newError(KindExists, "email_taken", MsgEmailInUse)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, internalError(err)
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, newError(KindExists, "email_taken", MsgEmailInUse)
		}
		return nil, internalError(err)
	}

	logging.FromContext(ctx).Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (string, error) {
	email := validation.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return "", newError(KindValidation, "missing_credentials", MsgCredentialsRequired)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", newError(KindAuth, "invalid_credentials", MsgInvalidCredentials)
		}
		return "", internalError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return "", newError(KindAuth, "invalid_credentials", MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", internalError(err)
	}
	return token, nil
}
