package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Catalog resolves a product id to its current name and price.
type Catalog interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
}

// CachedCatalog is a read-through redis cache in front of a Catalog.
// Concurrent misses for the same product share one lookup.
type CachedCatalog struct {
	next    Catalog
	client  *redis.Client
	ttl     time.Duration
	sfg     singleflight.Group
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewCachedCatalog(next Catalog, client *redis.Client, ttl time.Duration, metrics *awspkg.MetricsClient, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{
		next:    next,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if p, ok := c.fromCache(ctx, id); ok {
		c.record(awspkg.MetricCatalogCacheHits)
		return p, nil
	}
	c.record(awspkg.MetricCatalogCacheMisses)

	v, err, _ := c.sfg.Do(strconv.FormatUint(uint64(id), 10), func() (interface{}, error) {
		p, err := c.next.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers of a shared flight get their own copy.
	p := *v.(*models.Product)
	return &p, nil
}

// Invalidate drops a product after catalog administration changes it.
func (c *CachedCatalog) Invalidate(ctx context.Context, id uint) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, productCacheKey(id)).Err()
}

func (c *CachedCatalog) fromCache(ctx context.Context, id uint) (*models.Product, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, productCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", zap.Uint("product_id", id), zap.Error(err))
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("catalog cache entry corrupt", zap.Uint("product_id", id), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (c *CachedCatalog) store(ctx context.Context, p *models.Product) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productCacheKey(p.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.Uint("product_id", p.ID), zap.Error(err))
	}
}

func (c *CachedCatalog) record(metric string) {
	if !c.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.metrics.RecordCount(ctx, metric, nil)
	}()
}
