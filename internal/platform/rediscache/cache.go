// Package rediscache caches visualization payloads in Redis.
//
// Entries are keyed by a generation counter. Invalidate bumps the counter, so a
// payload computed against an older graph is never served after a rebuild.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration
	DialTimeout time.Duration
}

type Cache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("rediscache: logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("rediscache: missing addr")
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
	if ctx == nil {
		ctx = context.Background()
	}
	pctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewFromClient(log, rdb, cfg.Prefix, cfg.TTL), nil
}

func NewFromClient(log *logger.Logger, rdb *goredis.Client, prefix string, ttl time.Duration) *Cache {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "skillgraph"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		log:    log.With("service", "VisualizationCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *Cache) genKey() string { return c.prefix + ":gen" }

func (c *Cache) vizKey(gen int64, limit int) string {
	return fmt.Sprintf("%s:viz:%d:%d", c.prefix, gen, limit)
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Lookup returns the cached payload for limit, if any, and the generation token
// to pass to Store when the caller computes the payload itself.
func (c *Cache) Lookup(ctx context.Context, limit int) (types.Visualization, bool, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return types.Visualization{}, false, 0, err
	}
	raw, err := c.rdb.Get(ctx, c.vizKey(gen, limit)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.Visualization{}, false, gen, nil
	}
	if err != nil {
		return types.Visualization{}, false, gen, err
	}
	var viz types.Visualization
	if err := json.Unmarshal(raw, &viz); err != nil {
		c.log.Warn("Dropping undecodable cache entry", "limit", limit, "error", err)
		_ = c.rdb.Del(ctx, c.vizKey(gen, limit)).Err()
		return types.Visualization{}, false, gen, nil
	}
	return viz, true, gen, nil
}

func (c *Cache) Store(ctx context.Context, gen int64, limit int, viz types.Visualization) error {
	raw, err := json.Marshal(viz)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.vizKey(gen, limit), raw, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, c.genKey()).Err()
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
