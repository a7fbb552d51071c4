// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 5 * time.Second

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

var ErrCheckFailed = errors.New("health: check failed")

// CheckFunc reports a dependency's health.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]CheckFunc

// Response is the readiness body.
type Response struct {
	Status string           `json:"status"`
	Checks map[string]Check `json:"checks,omitempty"`
}

// Check is one dependency's result.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Run executes all checks in parallel under a shared timeout.
func Run(ctx context.Context, checks Checks, timeout time.Duration) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Check, len(checks))
		failed  bool
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := Check{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				res = Check{Status: StatusUnhealthy, Error: err.Error()}
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if res.Status == StatusUnhealthy {
				failed = true
			}
		}()
	}
	wg.Wait()

	resp := &Response{Status: StatusHealthy, Checks: results}
	if failed {
		resp.Status = StatusUnhealthy
	}
	return resp
}

// Liveness answers 200 while the process is serving.
func Liveness() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, &Response{Status: StatusHealthy})
	}
}

// Readiness answers 200 when every check passes, 503 otherwise.
func Readiness(checks Checks, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := Run(c.Request.Context(), checks, timeout)
		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

// Redis pings a go-redis client.
func Redis(client redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrCheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrCheckFailed, err)
		}
		return nil
	}
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Postgres pings a database pool.
func Postgres(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return ErrCheckFailed
		}
		if err := db.Ping(ctx); err != nil {
			return errors.Join(ErrCheckFailed, err)
		}
		return nil
	}
}
