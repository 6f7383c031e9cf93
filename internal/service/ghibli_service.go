package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/cache"
	"github.com/Baaaki/ghibli-gate/internal/ghibli"
	"github.com/Baaaki/ghibli-gate/internal/metrics"
	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	CacheKeyPrefix = "ghibli:"
	AllDataKey     = CacheKeyPrefix + "all_data"
)

// Category is one upstream collection.
type Category struct {
	Name     string
	Endpoint string
}

// CacheKey is the namespaced key for the category, e.g. "ghibli:/films".
func (c Category) CacheKey() string {
	return CacheKeyPrefix + c.Endpoint
}

type roleCategory struct {
	role     models.Role
	category Category
}

// roleCategories is ordered; the aggregate payload follows this order.
var roleCategories = []roleCategory{
	{models.RoleFilms, Category{Name: "films", Endpoint: "/films"}},
	{models.RolePeople, Category{Name: "people", Endpoint: "/people"}},
	{models.RoleLocations, Category{Name: "locations", Endpoint: "/locations"}},
	{models.RoleSpecies, Category{Name: "species", Endpoint: "/species"}},
	{models.RoleVehicles, Category{Name: "vehicles", Endpoint: "/vehicles"}},
}

// Categories returns every mapped category in mapping order.
func Categories() []Category {
	out := make([]Category, len(roleCategories))
	for i, rc := range roleCategories {
		out[i] = rc.category
	}
	return out
}

// CategoryForRole returns the single category a non-admin role may read.
func CategoryForRole(role models.Role) (Category, bool) {
	for _, rc := range roleCategories {
		if rc.role == role {
			return rc.category, true
		}
	}
	return Category{}, false
}

// GhibliOptions configures the proxy.
type GhibliOptions struct {
	// TTL for written entries; zero uses the cache default.
	TTL time.Duration
	// PartialOK lets the aggregate omit categories that failed instead of
	// failing as a whole.
	PartialOK bool
}

// GhibliService serves upstream content by role, cache-aside.
type GhibliService struct {
	cache    cache.Cache
	upstream ghibli.Fetcher
	opts     GhibliOptions
}

func NewGhibliService(c cache.Cache, upstream ghibli.Fetcher, opts GhibliOptions) *GhibliService {
	if c == nil {
		c = cache.Disabled{}
	}
	return &GhibliService{
		cache:    c,
		upstream: upstream,
		opts:     opts,
	}
}

// FetchForRole returns the payload role is allowed to see: one category's
// JSON for a mapped role, the aggregate object for admin.
func (s *GhibliService) FetchForRole(ctx context.Context, role models.Role) (json.RawMessage, error) {
	if role == models.RoleAdmin {
		return s.FetchAll(ctx)
	}

	category, ok := CategoryForRole(role)
	if !ok {
		logger.Log.Warn("Role has no content mapping", zap.String("role", role.String()))
		return nil, ErrRoleNotAuthorized
	}

	key := category.CacheKey()
	if data, ok := s.lookup(ctx, key); ok {
		logger.Log.Info("Returning cached data", zap.String("endpoint", category.Endpoint))
		return data, nil
	}

	data, err := s.upstream.Fetch(ctx, category.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, category.Endpoint, err)
	}

	s.store(ctx, key, data)
	return data, nil
}

// FetchAll returns {"films": [...], "people": [...], ...} in mapping order.
// With PartialOK a failed category is left out; otherwise any failure fails
// the whole call. A result with no categories is always an error.
func (s *GhibliService) FetchAll(ctx context.Context) (json.RawMessage, error) {
	if data, ok := s.lookup(ctx, AllDataKey); ok {
		logger.Log.Info("Returning cached all data")
		return data, nil
	}

	categories := Categories()
	results := make([]json.RawMessage, len(categories))
	failures := make([]error, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			data, err := s.upstream.Fetch(gctx, category.Endpoint)
			if err != nil {
				failures[i] = err
				if s.opts.PartialOK {
					return nil
				}
				return fmt.Errorf("%s: %w", category.Endpoint, err)
			}
			results[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Log.Error("Error fetching all data", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	payload, populated := buildAggregate(categories, results)
	if populated == 0 {
		logger.Log.Error("Every category failed", zap.Errors("errors", failures))
		return nil, fmt.Errorf("%w: no category could be fetched", ErrUpstream)
	}
	if populated < len(categories) {
		var omitted []string
		for i, err := range failures {
			if err != nil {
				omitted = append(omitted, categories[i].Name)
			}
		}
		logger.Log.Warn("Serving partial aggregate",
			zap.Strings("omitted", omitted),
			zap.Int("populated", populated),
		)
	}

	s.store(ctx, AllDataKey, payload)
	return payload, nil
}

// buildAggregate writes a JSON object keyed by category name, preserving order.
func buildAggregate(categories []Category, results []json.RawMessage) (json.RawMessage, int) {
	var buf bytes.Buffer
	populated := 0

	buf.WriteByte('{')
	for i, data := range results {
		if data == nil {
			continue
		}
		if populated > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(categories[i].Name)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(data)
		populated++
	}
	buf.WriteByte('}')

	return json.RawMessage(buf.Bytes()), populated
}

// ClearCache drops every key the proxy writes.
func (s *GhibliService) ClearCache(ctx context.Context) bool {
	keys := []string{AllDataKey}
	for _, c := range Categories() {
		keys = append(keys, c.CacheKey())
	}

	ok := s.cache.Delete(ctx, keys...)
	logger.Log.Info("Proxy cache cleared", zap.Bool("ok", ok), zap.String("keys", strings.Join(keys, ",")))
	return ok
}

// lookup reads key and reports a hit. Miss and Unavailable both fall through.
func (s *GhibliService) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	res := s.cache.Get(ctx, key)
	metrics.CacheLookupsTotal.WithLabelValues(key, res.Status.String()).Inc()

	switch res.Status {
	case cache.Hit:
		return res.Value, true
	case cache.Miss:
		logger.Log.Debug("Cache miss", zap.String("key", key))
		return nil, false
	case cache.Unavailable:
		logger.Log.Warn("Cache not available, serving data directly from API", zap.String("key", key))
		return nil, false
	default:
		return nil, false
	}
}

// store writes the upstream bytes unchanged, best-effort; a failed write is
// logged and otherwise ignored.
func (s *GhibliService) store(ctx context.Context, key string, data json.RawMessage) {
	if s.cache.SetRaw(ctx, key, data, s.opts.TTL) {
		logger.Log.Info("Data fetched and cached", zap.String("key", key))
		return
	}
	logger.Log.Warn("Data fetched but not cached", zap.String("key", key))
}
