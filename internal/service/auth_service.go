package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"connector/internal/auth"
	"connector/internal/middleware"
	"connector/internal/models"
	"connector/internal/observability"
	"connector/internal/repository"
	"connector/internal/validation"
)

// AuthService registers users, checks credentials and issues tokens.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(userRepo repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// GravatarURL derives the avatar for an email address.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(validation.NormalizeEmail(email)))
	return fmt.Sprintf("//www.gravatar.com/avatar/%s?s=200&r=pg&d=mm", hex.EncodeToString(sum[:]))
}

// Register creates an account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (token string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() {
		observability.AuthAttempts.WithLabelValues("register", outcome(err)).Inc()
		observability.EndSpan(span, err)
	}()

	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)

	if err := validation.ValidateName(name); err != nil {
		return "", models.NewValidationError("Name is required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return "", models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", models.NewDuplicateUserError()
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return "", hasherError(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Avatar:   GravatarURL(email),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", err
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return s.issue(user.ID)
}

// Authenticate checks email and password. Unknown email and wrong password
// produce the same error, and both run one bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, in LoginInput) (token string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Authenticate")
	defer func() {
		observability.AuthAttempts.WithLabelValues("login", outcome(err)).Inc()
		observability.EndSpan(span, err)
	}()

	// A malformed email or an empty password can match no account, so they
	// get the same answer as any other failed login.
	email := validation.NormalizeEmail(in.Email)
	if validation.ValidateEmail(email) != nil || in.Password == "" {
		return "", models.NewInvalidCredentialsError()
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		if err := s.hasher.CompareDummy(ctx, in.Password); !errors.Is(err, auth.ErrPasswordMismatch) {
			return "", hasherError(err)
		}
		return "", models.NewInvalidCredentialsError()
	}

	if err := s.hasher.Compare(ctx, user.Password, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", models.NewInvalidCredentialsError()
		}
		return "", hasherError(err)
	}

	return s.issue(user.ID)
}

// GetProfile returns the user without the password hash.
func (s *AuthService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *AuthService) issue(userID uint) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

func hasherError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewTimeoutError(err)
	}
	return models.NewInternalError(err)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(models.ErrorCode(err))
}
