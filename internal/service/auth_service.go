package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/auth"
	"github.com/spec-kit/account-portal/internal/domain"
	"github.com/spec-kit/account-portal/internal/events"
	"github.com/spec-kit/account-portal/internal/repository"
	apperrors "github.com/spec-kit/account-portal/pkg/util/errorutil"
)

// MsgPasswordTooLong is shown when the configured hasher cannot take the password.
var MsgPasswordTooLong = fmt.Sprintf("Must be at most %d bytes.", auth.BcryptMaxPasswordBytes)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     auth.Hasher
	dispatcher events.Dispatcher
	logger     *zap.Logger

	decoyOnce   sync.Once
	decoyDigest string
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     auth.Hasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// RegisterUser creates a new account. An email that is already taken yields
// ErrDuplicateAccount whether the pre-check or the unique index catches it.
func (s *AuthService) RegisterUser(ctx context.Context, email, name, password string) (*domain.User, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password too long", map[string]any{
			"password": MsgPasswordTooLong,
		})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user, err := s.users.Create(ctx, email, name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.ErrDuplicateAccount
		}
		return nil, apperrors.NewStorageFailure(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email: user.Email,
		Name:  user.Name,
	}))
	return user, nil
}

// LoginUser authenticates an account. Unknown email and wrong password both
// return ErrCredentialMismatch.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NewStorageFailure(err)
	}

	if user == nil {
		// Burn a verification so unknown emails cost the same as wrong passwords.
		s.hasher.Verify(password, s.decoy())
		s.loginFailed(ctx, email, events.ReasonUnknownEmail)
		return nil, apperrors.ErrCredentialMismatch
	}
	if !s.hasher.Verify(password, user.Password) {
		s.loginFailed(ctx, email, events.ReasonWrongPassword)
		return nil, apperrors.ErrCredentialMismatch
	}

	s.publish(ctx, events.NewEvent(events.EventUserLoggedIn, user.ID, nil))
	return user, nil
}

// Logout records the end of a session. Anonymous logouts are not recorded.
func (s *AuthService) Logout(ctx context.Context, userID int64) {
	if userID == 0 {
		return
	}
	s.publish(ctx, events.NewEvent(events.EventUserLoggedOut, userID, nil))
}

func (s *AuthService) loginFailed(ctx context.Context, email string, reason events.LoginFailedReason) {
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, 0, events.LoginFailedPayload{
		Email:  email,
		Reason: reason,
	}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash("decoy password")
		if err != nil {
			s.logger.Warn("decoy digest unavailable", zap.Error(err))
			return
		}
		s.decoyDigest = digest
	})
	return s.decoyDigest
}
