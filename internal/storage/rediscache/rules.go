// Package rediscache puts a Redis read-through cache in front of the risk rule
// store, so the fallback risk path rarely has to reach the database.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
)

const ruleKeyPrefix = "risk_rule:"

// RiskRuleCache caches rule lookups of the wrapped store in Redis.
// Any Redis failure falls through to the wrapped store.
type RiskRuleCache struct {
	next   interfaces.RiskRuleStore
	client *redis.Client
	ttl    time.Duration
}

// NewRiskRuleCache wraps next. A zero ttl keeps entries until the rule is saved again.
func NewRiskRuleCache(next interfaces.RiskRuleStore, client *redis.Client, ttl time.Duration) *RiskRuleCache {
	return &RiskRuleCache{next: next, client: client, ttl: ttl}
}

// NewClient dials Redis and pings it
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (c *RiskRuleCache) FindByCurrency(ctx context.Context, currency string) (models.RiskRule, error) {
	key := ruleKey(currency)

	data, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var rule models.RiskRule
		if jsonErr := json.Unmarshal([]byte(data), &rule); jsonErr == nil {
			return rule, nil
		}
		slog.WarnContext(ctx, "risk rule cache: corrupt entry", "key", key)
	case err != redis.Nil:
		slog.WarnContext(ctx, "risk rule cache: read failed", "key", key, "error", err)
	}

	rule, err := c.next.FindByCurrency(ctx, currency)
	if err != nil {
		return models.RiskRule{}, err
	}
	c.set(ctx, key, rule)
	return rule, nil
}

// Save writes through to the wrapped store and refreshes the cached copy
func (c *RiskRuleCache) Save(ctx context.Context, rule models.RiskRule) error {
	if err := c.next.Save(ctx, rule); err != nil {
		return err
	}
	c.set(ctx, ruleKey(rule.Currency), rule)
	return nil
}

func (c *RiskRuleCache) set(ctx context.Context, key string, rule models.RiskRule) {
	data, err := json.Marshal(rule)
	if err != nil {
		slog.WarnContext(ctx, "risk rule cache: marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "risk rule cache: write failed", "key", key, "error", err)
	}
}

func ruleKey(currency string) string {
	return ruleKeyPrefix + strings.ToUpper(currency)
}

var _ interfaces.RiskRuleStore = (*RiskRuleCache)(nil)
