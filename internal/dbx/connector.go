package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

var sqlOpen = sql.Open

// Connector opens a database lazily and shares the handle with every caller.
// Concurrent first callers wait on the same in-flight attempt; a failed
// attempt is not cached, so the next call tries again.
type Connector struct {
	driver   string
	dsn      string
	attempts int
	base     time.Duration

	group singleflight.Group

	mu sync.Mutex
	db *sql.DB
}

// NewConnector returns a Connector that pings up to attempts times before
// giving up on a connection attempt.
func NewConnector(driver, dsn string, attempts int) *Connector {
	if attempts < 1 {
		attempts = 1
	}
	return &Connector{
		driver:   driver,
		dsn:      dsn,
		attempts: attempts,
		base:     100 * time.Millisecond,
	}
}

// DB returns the shared handle, connecting on first use.
func (c *Connector) DB(ctx context.Context) (*sql.DB, error) {
	if db := c.current(); db != nil {
		return db, nil
	}

	v, err, _ := c.group.Do("connect", func() (any, error) {
		if db := c.current(); db != nil {
			return db, nil
		}
		db, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.db = db
		c.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (c *Connector) current() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

func (c *Connector) connect(ctx context.Context) (*sql.DB, error) {
	b := retry.NewExponential(c.base)
	b = retry.WithCappedDuration(2*time.Second, b)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithMaxRetries(uint64(c.attempts-1), b)

	db, err := retry.DoValue(ctx, b, func(ctx context.Context) (*sql.DB, error) {
		db, err := sqlOpen(c.driver, c.dsn)
		if err != nil {
			return nil, retry.RetryableError(err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, retry.RetryableError(err)
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	return db, nil
}

// Close closes the shared handle if one was opened.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
