// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"compras/internal/domain/approval"
	"compras/pkg/logger"
)

// Notification channels.
const (
	// ChannelApprovalConfig carries the company_id whose approval configs changed.
	ChannelApprovalConfig = "aprovacao_config_changed"
	// ChannelSchema carries the schema.table whose columns changed.
	ChannelSchema = "schema_changed"
)

// InvalidationListener is called for each notification received.
type InvalidationListener func(channel, payload string)

type configKey struct {
	companyID string
	process   approval.ProcessType
}

// ConfigCache caches active approval configs per company and process type
// in front of a repository. Entries are dropped when a NOTIFY arrives on
// ChannelApprovalConfig, so there is no TTL.
type ConfigCache struct {
	pool *pgxpool.Pool
	repo approval.Repository

	mu      sync.RWMutex
	configs map[configKey][]approval.Config

	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewConfigCache creates a config cache. pool is used for LISTEN only.
func NewConfigCache(pool *pgxpool.Pool, repo approval.Repository) *ConfigCache {
	return &ConfigCache{
		pool:    pool,
		repo:    repo,
		configs: make(map[configKey][]approval.Config),
	}
}

// ListActive returns cached configs, loading them on a miss.
func (c *ConfigCache) ListActive(ctx context.Context, companyID string, process approval.ProcessType) ([]approval.Config, error) {
	key := configKey{companyID: companyID, process: process}

	c.mu.RLock()
	cached, ok := c.configs[key]
	c.mu.RUnlock()
	if ok {
		return append([]approval.Config(nil), cached...), nil
	}

	configs, err := c.repo.ListActive(ctx, companyID, process)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.configs[key] = configs
	c.mu.Unlock()
	return append([]approval.Config(nil), configs...), nil
}

// Invalidate drops the entries of a company, or all entries when companyID
// is empty.
func (c *ConfigCache) Invalidate(companyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if companyID == "" {
		c.configs = make(map[configKey][]approval.Config)
		return
	}
	for k := range c.configs {
		if k.companyID == companyID {
			delete(c.configs, k)
		}
	}
}

// OnInvalidation registers a callback for notifications.
func (c *ConfigCache) OnInvalidation(listener InvalidationListener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener)
	c.listenersMu.Unlock()
}

// Start begins listening for NOTIFY events.
func (c *ConfigCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.started {
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "config cache started")
	return nil
}

// Stop stops the listener and waits for it to exit.
func (c *ConfigCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "config cache stopped")
}

func (c *ConfigCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		_, err = conn.Exec(c.ctx, "LISTEN "+ChannelApprovalConfig+"; LISTEN "+ChannelSchema+";")
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		// Anything cached before LISTEN may already be stale.
		c.Invalidate("")
		logger.Info(c.ctx, "listening for notifications", "channels", []string{ChannelApprovalConfig, ChannelSchema})

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *ConfigCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			// Connection broken: reacquire.
			logger.Warn(c.ctx, "LISTEN connection lost", "error", err)
			return
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)
		c.handleNotification(notification.Channel, notification.Payload)
	}
}

func (c *ConfigCache) handleNotification(channel, payload string) {
	if channel == ChannelApprovalConfig {
		c.Invalidate(strings.TrimSpace(payload))
	}

	// Listeners run inline with panic recovery, no goroutine per event.
	c.listenersMu.RLock()
	for _, listener := range c.listeners {
		func(l InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(c.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			l(channel, payload)
		}(listener)
	}
	c.listenersMu.RUnlock()
}

var _ approval.Repository = (*ConfigCache)(nil)
