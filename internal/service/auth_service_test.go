package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/internal/testutil"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const testSecret = "test-secret-key"

type AuthServiceTestSuite struct {
	suite.Suite
	testDB *testutil.TestDatabase
	tokens *utils.TokenManager
	auth   *service.AuthService
	users  *service.UserService
	ctx    context.Context
}

func (s *AuthServiceTestSuite) SetupSuite() {
	s.testDB = testutil.SetupTestDatabase(s.T())

	tokens, err := utils.NewTokenManager(testSecret, "HS256", 30*time.Minute)
	s.Require().NoError(err)
	s.tokens = tokens

	repo := repository.NewUserRepository(s.testDB.DB, time.Second)
	s.auth = service.NewAuthService(repo, testutil.Hasher, tokens)
	s.users = service.NewUserService(repo, testutil.Hasher, service.Pagination{DefaultLimit: 10, MaxLimit: 100})
	s.ctx = context.Background()
}

func (s *AuthServiceTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *AuthServiceTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (s *AuthServiceTestSuite) TestLogin_Success() {
	// Arrange
	user := testutil.DefaultRoleUser(s.T(), s.testDB.DB, models.RolePeople)

	// Act
	token, got, err := s.auth.Login(s.ctx, "people", "test123")

	// Assert
	s.Require().NoError(err)
	s.NotEmpty(token)
	s.Equal(user.ID, got.ID)

	subject, err := s.tokens.Verify(token)
	s.Require().NoError(err)
	s.Equal(user.ID, subject)
}

func (s *AuthServiceTestSuite) TestLogin_InvalidCredentials() {
	testutil.DefaultRoleUser(s.T(), s.testDB.DB, models.RoleFilms)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "films", "wrong"},
		{"unknown user", "nobody", "test123"},
		{"username is case sensitive", "FILMS", "test123"},
		{"empty password", "films", ""},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			token, user, err := s.auth.Login(s.ctx, tt.username, tt.password)

			s.ErrorIs(err, service.ErrInvalidCredentials)
			s.Empty(token)
			s.Nil(user)
		})
	}
}

func (s *AuthServiceTestSuite) TestLogin_InactiveUserGetsNoToken() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "sleepy", "test123", models.RoleFilms, testutil.Inactive())

	token, _, err := s.auth.Login(s.ctx, "sleepy", "test123")

	s.ErrorIs(err, service.ErrInactiveUser)
	s.Empty(token)
}

func (s *AuthServiceTestSuite) TestLogin_InactiveWithWrongPasswordIsInvalidCredentials() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "sleepy", "test123", models.RoleFilms, testutil.Inactive())

	_, _, err := s.auth.Login(s.ctx, "sleepy", "nope")

	s.ErrorIs(err, service.ErrInvalidCredentials)
}

func (s *AuthServiceTestSuite) TestAuthorize_Outcomes() {
	active := testutil.DefaultRoleUser(s.T(), s.testDB.DB, models.RoleFilms)
	inactive := testutil.CreateTestUser(s.T(), s.testDB.DB, "sleepy", "test123", models.RoleFilms, testutil.Inactive())
	admin := testutil.DefaultAdminUser(s.T(), s.testDB.DB)

	activeToken, err := s.auth.IssueToken(active)
	s.Require().NoError(err)
	inactiveToken, err := s.auth.IssueToken(inactive)
	s.Require().NoError(err)
	adminToken, err := s.auth.IssueToken(admin)
	s.Require().NoError(err)
	expiredToken, err := s.tokens.IssueWithTTL(active.ID, 0)
	s.Require().NoError(err)
	ghostToken, err := s.tokens.Issue(uuid.New())
	s.Require().NoError(err)
	otherKey, err := utils.NewTokenManager("another-secret", "HS256", time.Minute)
	s.Require().NoError(err)
	forgedToken, err := otherKey.Issue(admin.ID)
	s.Require().NoError(err)

	tests := []struct {
		name    string
		token   string
		req     service.Requirement
		wantErr error
		wantID  uuid.UUID
	}{
		{"active user, active required", activeToken, service.RequireActive, nil, active.ID},
		{"inactive user, any user", inactiveToken, service.RequireUser, nil, inactive.ID},
		{"inactive user, active required", inactiveToken, service.RequireActive, service.ErrInactiveUser, uuid.Nil},
		{"non superuser, superuser required", activeToken, service.RequireSuperuser, service.ErrForbidden, uuid.Nil},
		{"inactive non superuser, superuser required", inactiveToken, service.RequireSuperuser, service.ErrInactiveUser, uuid.Nil},
		{"superuser, superuser required", adminToken, service.RequireSuperuser, nil, admin.ID},
		{"missing token", "", service.RequireActive, service.ErrNotAuthenticated, uuid.Nil},
		{"garbage token", "garbage", service.RequireActive, service.ErrNotAuthenticated, uuid.Nil},
		{"expired token", expiredToken, service.RequireActive, service.ErrNotAuthenticated, uuid.Nil},
		{"deleted user", ghostToken, service.RequireActive, service.ErrNotAuthenticated, uuid.Nil},
		{"forged signature", forgedToken, service.RequireSuperuser, service.ErrNotAuthenticated, uuid.Nil},
		{"optional, no token", "", service.OptionalActive, nil, uuid.Nil},
		{"optional, bad token", "garbage", service.OptionalActive, nil, uuid.Nil},
		{"optional, valid token", adminToken, service.OptionalActive, nil, admin.ID},
		{"optional, inactive user", inactiveToken, service.OptionalActive, service.ErrInactiveUser, uuid.Nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			user, err := s.auth.Authorize(s.ctx, tt.token, tt.req)

			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				s.Nil(user)
				return
			}
			s.Require().NoError(err)
			if tt.wantID == uuid.Nil {
				s.Nil(user)
				return
			}
			s.Require().NotNil(user)
			s.Equal(tt.wantID, user.ID)
		})
	}
}

func (s *AuthServiceTestSuite) TestAuthorize_DeactivatedAfterIssuance() {
	// Arrange: token issued while active
	user := testutil.DefaultRoleUser(s.T(), s.testDB.DB, models.RoleSpecies)
	token, _, err := s.auth.Login(s.ctx, "species", "test123")
	s.Require().NoError(err)

	inactive := false
	_, err = s.users.Update(s.ctx, user.ID, models.UserUpdate{IsActive: &inactive})
	s.Require().NoError(err)

	// Act
	_, err = s.auth.Authorize(s.ctx, token, service.RequireActive)

	// Assert
	s.ErrorIs(err, service.ErrInactiveUser)
}
