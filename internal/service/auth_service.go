package service

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/metrics"
	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"go.uber.org/zap"
)

// AuthMode says whether a missing or unusable identity is an error.
type AuthMode int

const (
	// AuthRequired rejects requests without a valid token.
	AuthRequired AuthMode = iota
	// AuthOptional lets them through with no identity.
	AuthOptional
)

// Requirement is what an endpoint demands of its caller.
type Requirement struct {
	Mode      AuthMode
	Active    bool
	Superuser bool
}

var (
	RequireUser      = Requirement{Mode: AuthRequired}
	RequireActive    = Requirement{Mode: AuthRequired, Active: true}
	RequireSuperuser = Requirement{Mode: AuthRequired, Active: true, Superuser: true}
	OptionalActive   = Requirement{Mode: AuthOptional, Active: true}
)

type AuthService struct {
	users  UserStore
	hasher *utils.PasswordHasher
	tokens *utils.TokenManager
}

func NewAuthService(users UserStore, hasher *utils.PasswordHasher, tokens *utils.TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Authenticate checks username and password. Unknown user and wrong password
// are the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	logger.Log.Debug("Attempting to authenticate user", zap.String("username", username))

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to get user by username",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		logger.Log.Warn("Authentication failed: user not found", zap.String("username", username))
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	verifyStart := time.Now()
	if !s.hasher.VerifyPassword(password, user.HashedPassword) {
		logger.Log.Warn("Authentication failed: invalid password",
			zap.String("username", username),
			zap.String("user_id", user.ID.String()),
		)
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	logger.Log.Debug("Password verified",
		zap.String("username", username),
		zap.Duration("password_verify_duration", time.Since(verifyStart)),
	)
	return user, nil
}

// Login authenticates and issues an access token. Inactive users get no token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	start := time.Now()

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}

	if !user.IsActive {
		logger.Log.Warn("Login attempt for inactive user",
			zap.String("username", username),
			zap.String("user_id", user.ID.String()),
		)
		metrics.AuthFailuresTotal.WithLabelValues("inactive").Inc()
		return "", nil, ErrInactiveUser
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		logger.Log.Error("Failed to generate access token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return "", nil, err
	}

	logger.Log.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", user.Role.String()),
		zap.Duration("total_duration", time.Since(start)),
	)
	return token, user, nil
}

// ResolveToken maps a bearer token to its user. Every failure, including a
// valid token whose user was deleted, is ErrNotAuthenticated.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		reason := "unknown"
		var authErr *utils.AuthError
		if errors.As(err, &authErr) {
			reason = string(authErr.Reason)
		}
		logger.Log.Warn("Token rejected", zap.String("reason", reason), zap.Error(err))
		metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
		return nil, ErrNotAuthenticated
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to load token subject",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		logger.Log.Warn("Token subject not found", zap.String("user_id", userID.String()))
		metrics.AuthFailuresTotal.WithLabelValues("unknown_subject").Inc()
		return nil, ErrNotAuthenticated
	}

	return user, nil
}

// Authorize runs the gate for one request. It returns the caller, or nil with a
// nil error when the mode is optional and no usable identity was presented.
// Errors are ErrNotAuthenticated, ErrInactiveUser, ErrForbidden or a store failure.
func (s *AuthService) Authorize(ctx context.Context, token string, req Requirement) (*models.User, error) {
	if token == "" {
		if req.Mode == AuthOptional {
			return nil, nil
		}
		logger.Log.Debug("Missing bearer token")
		metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
		return nil, ErrNotAuthenticated
	}

	user, err := s.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) && req.Mode == AuthOptional {
			return nil, nil
		}
		return nil, err
	}

	if req.Active && !user.IsActive {
		logger.Log.Warn("Inactive user attempt to access",
			zap.String("username", user.Username),
			zap.String("user_id", user.ID.String()),
		)
		metrics.AuthFailuresTotal.WithLabelValues("inactive").Inc()
		return nil, ErrInactiveUser
	}

	if req.Superuser && !user.IsSuperuser {
		logger.Log.Warn("Unauthorized admin access attempt",
			zap.String("username", user.Username),
			zap.String("user_id", user.ID.String()),
		)
		metrics.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
		return nil, ErrForbidden
	}

	return user, nil
}

// IssueToken signs a token for an existing user without checking credentials
// or the active flag. Used by provisioning tools and tests.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	return s.tokens.Issue(user.ID)
}
