package submit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("submission already in progress")

// #region guard
// Guard admits at most one submission at a time. Acquire fails fast with
// ErrBusy instead of waiting.
type Guard interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// LocalGuard serializes submissions within one process.
type LocalGuard struct {
	busy atomic.Bool
}

func (g *LocalGuard) Acquire(ctx context.Context) (func(), error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { g.busy.Store(false) }, nil
}

// RedisGuard serializes submissions across processes sharing one draft.
type RedisGuard struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedisGuard locks key for at most ttl per submission. A lock that
// expired before release is logged to logger.
func NewRedisGuard(locker *redislock.Client, key string, ttl time.Duration, logger logrus.FieldLogger) *RedisGuard {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisGuard{locker: locker, key: "lock:" + key, ttl: ttl, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context) (func(), error) {
	lock, err := g.locker.Obtain(ctx, g.key, g.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", g.key, err)
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			g.logger.WithFields(logrus.Fields{"key": g.key, "ttl": g.ttl}).WithError(err).Warn("release submit lock")
		}
	}, nil
}
// #endregion guard
