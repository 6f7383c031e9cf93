package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/config"
	"github.com/Baaaki/ghibli-gate/internal/ghibli"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/internal/router"
	"github.com/Baaaki/ghibli-gate/internal/service"
	"github.com/Baaaki/ghibli-gate/internal/testutil"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/suite"
)

const (
	apiPrefix  = "/api/v1"
	testSecret = "test-secret-key"
)

// apiSuite wires the full HTTP stack over SQLite, miniredis and a fake upstream.
type apiSuite struct {
	suite.Suite
	testDB    *testutil.TestDatabase
	testRedis *testutil.TestRedis
	upstream  *testutil.FakeUpstream
	cfg       *config.Config
	router    *gin.Engine
}

func (s *apiSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.testDB = testutil.SetupTestDatabase(s.T())
}

func (s *apiSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

func (s *apiSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.testRedis = testutil.SetupTestRedis(s.T())
	s.upstream = testutil.NewFakeUpstream(s.T())
	s.buildRouter(nil)
}

func (s *apiSuite) TearDownTest() {
	s.testRedis.Teardown(s.T())
}

// buildRouter (re)creates the engine; overrides are applied on top of the
// test environment.
func (s *apiSuite) buildRouter(overrides map[string]string) {
	env := map[string]string{
		"SECRET_KEY":        testSecret,
		"DB_DRIVER":         "sqlite",
		"GHIBLI_BASE_URL":   s.upstream.URL(),
		"ENVIRONMENT":       "testing",
		"RATE_LIMIT_WINDOW": "1m",
	}
	for k, v := range overrides {
		env[k] = v
	}

	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(env))
	s.Require().NoError(err)
	s.cfg = cfg

	tokens, err := utils.NewTokenManager(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL())
	s.Require().NoError(err)

	repo := repository.NewUserRepository(s.testDB.DB, time.Second)
	proxyCache := s.testRedis.NewCache()

	s.router, err = router.New(router.Deps{
		Config:      cfg,
		DB:          s.testDB.DB,
		Cache:       proxyCache,
		Redis:       s.testRedis.Client,
		AuthService: service.NewAuthService(repo, testutil.Hasher, tokens),
		UserService: service.NewUserService(repo, testutil.Hasher, service.Pagination{
			DefaultLimit: cfg.PaginationDefaultLimit,
			MaxLimit:     cfg.PaginationMaxLimit,
		}),
		GhibliService: service.NewGhibliService(
			proxyCache,
			ghibli.NewClient(s.upstream.URL(), time.Second),
			service.GhibliOptions{TTL: cfg.CacheTTL(), PartialOK: cfg.Ghibli.PartialOK},
		),
	})
	s.Require().NoError(err)
}

func (s *apiSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiSuite) postLogin(username, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// login returns a token for valid credentials.
func (s *apiSuite) login(username, password string) string {
	w := s.postLogin(username, password)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().NotEmpty(resp.AccessToken)
	return resp.AccessToken
}

func (s *apiSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (s *apiSuite) detail(w *httptest.ResponseRecorder) string {
	d, _ := s.decode(w)["detail"].(string)
	return d
}
